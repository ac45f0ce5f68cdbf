package course

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

var (
	excludedTag  = "excluded"
	excludedText = "this field is not allowed for this content kind"
)

// InitValidators registers course-specific validations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(contentStructValidation, Content{})
	core.RegisterCustomTranslation(validate, translator, excludedTag, excludedText)
}

// contentStructValidation enforces the content variant: exactly the
// reference matching Kind must be set.
func contentStructValidation(sl validator.StructLevel) {
	content := sl.Current().Interface().(Content)

	switch content.Kind {
	case KindVideo:
		if content.VideoID == "" {
			sl.ReportError(content.VideoID, "video_id", "VideoID", "required", "")
		}
		if content.EbookURL != "" {
			sl.ReportError(content.EbookURL, "ebook_url", "EbookURL", excludedTag, "")
		}
	case KindEbook:
		if content.EbookURL == "" {
			sl.ReportError(content.EbookURL, "ebook_url", "EbookURL", "required", "")
		}
		if content.VideoID != "" {
			sl.ReportError(content.VideoID, "video_id", "VideoID", excludedTag, "")
		}
	}
}
