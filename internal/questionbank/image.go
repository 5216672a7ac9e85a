package questionbank

// ImageState is the outcome of an edit on a question image.
type ImageState int

const (
	ImageNone ImageState = iota
	ImageExisting
	ImageReplaced
	ImageRemoved
)

func (s ImageState) String() string {
	switch s {
	case ImageExisting:
		return "existing"
	case ImageReplaced:
		return "replaced"
	case ImageRemoved:
		return "removed"
	default:
		return "none"
	}
}

// ImageInput is what the authoring form submits for an image field. Upload
// is a reference to a newly stored file; Existing echoes the image the form
// was opened with.
type ImageInput struct {
	Upload   string `json:"upload,omitempty"`
	Existing string `json:"existingImage,omitempty"`
}

// ResolveImage applies form input to the current image reference. A new
// upload replaces; an echoed reference keeps the current image; submitting
// neither clears it.
func ResolveImage(current string, in ImageInput) (string, ImageState) {
	switch {
	case in.Upload != "":
		return in.Upload, ImageReplaced
	case in.Existing != "" && current != "":
		return current, ImageExisting
	case current != "":
		return "", ImageRemoved
	default:
		return "", ImageNone
	}
}
