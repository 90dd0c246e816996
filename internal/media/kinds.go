package media

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Kind names what an upload will be used for. It also prefixes the object path.
type Kind string

const (
	KindCover  Kind = "cover"
	KindPost   Kind = "post"
	KindAvatar Kind = "avatar"
)

var imageTypes = []string{"image/gif", "image/jpeg", "image/png", "image/webp"}

type kindPolicy struct {
	accepts []string
	label   string
}

var policies = map[Kind]kindPolicy{
	KindCover:  {accepts: imageTypes, label: "a PNG, JPEG, WebP or GIF image"},
	KindPost:   {accepts: imageTypes, label: "a PNG, JPEG, WebP or GIF image"},
	KindAvatar: {accepts: imageTypes, label: "a PNG, JPEG, WebP or GIF image"},
}

func (k Kind) IsValid() bool {
	_, ok := policies[k]
	return ok
}

// accepts matches on the sniffed type, so a renamed file does not slip through.
func (k Kind) accepts(detected *mimetype.MIME) bool {
	policy, ok := policies[k]
	if !ok || detected == nil {
		return false
	}
	for _, candidate := range policy.accepts {
		if detected.Is(candidate) {
			return true
		}
	}
	return false
}

func (k Kind) describe() string {
	return policies[k].label
}

// baseType drops parameters such as "; charset=utf-8".
func baseType(detected *mimetype.MIME) string {
	value, _, _ := strings.Cut(detected.String(), ";")
	return strings.ToLower(strings.TrimSpace(value))
}
