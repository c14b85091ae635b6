package enums

// UploadKind decides which object prefix and content types an upload may use.
type UploadKind string

const (
	UploadKindImage UploadKind = "image"
	UploadKindFile  UploadKind = "file"
)

var uploadKinds = []UploadKind{UploadKindImage, UploadKindFile}

func (k UploadKind) IsValid() bool { return member(uploadKinds, k) }

func ParseUploadKind(value string) (UploadKind, error) {
	return parseLoose(uploadKinds, "upload kind", value)
}
