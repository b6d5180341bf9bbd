package podcast

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func configValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterStructValidation(distinctSpeakers, Config{})
	})
	return validate
}

// distinctSpeakers rejects configs whose speaker labels would be ambiguous.
func distinctSpeakers(sl validator.StructLevel) {
	c := sl.Current().Interface().(Config)
	a := strings.TrimSpace(c.SpeakerA)
	b := strings.TrimSpace(c.SpeakerB)
	if a != "" && strings.EqualFold(a, b) {
		sl.ReportError(c.SpeakerB, "SpeakerB", "speaker_b", "nefield", "SpeakerA")
	}
}

// Validate checks c against the supported option set. Any violation is a
// ConfigurationError listing every offending field.
func (c Config) Validate() error {
	if strings.TrimSpace(c.SpeakerA) == "" || strings.TrimSpace(c.SpeakerB) == "" || strings.TrimSpace(c.Topic) == "" {
		return ConfigurationError(nil, "speaker names and topic must not be blank")
	}
	err := configValidator().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ConfigurationError(err, "validating podcast config")
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return ConfigurationError(err, "invalid fields: %s", strings.Join(fields, ", "))
}
