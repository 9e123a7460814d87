// Package prompt wraps the interactive terminal questions the CLI asks
// before starting a crawl.
package prompt

import (
	"fmt"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
)

func Confirm(message string, def bool) (bool, error) {
	answer := def
	err := survey.AskOne(&survey.Confirm{Message: message, Default: def}, &answer)
	return answer, err
}

func Text(message string) (string, error) {
	var answer string
	err := survey.AskOne(&survey.Input{Message: message}, &answer, survey.WithValidator(survey.Required))
	return answer, err
}

func TextDefault(message, def string) (string, error) {
	answer := def
	err := survey.AskOne(&survey.Input{Message: message, Default: def}, &answer)
	if err != nil {
		return "", err
	}
	if answer == "" {
		answer = def
	}
	return answer, nil
}

// IntInRange asks for an integer between lo and hi inclusive.
func IntInRange(message string, lo, hi int) (int, error) {
	return askInt(message, func(n int) error {
		if n < lo || n > hi {
			return fmt.Errorf("value must be between %d and %d", lo, hi)
		}
		return nil
	})
}

// IntMin asks for an integer no smaller than lo.
func IntMin(message string, lo int) (int, error) {
	return askInt(message, func(n int) error {
		if n < lo {
			return fmt.Errorf("value must be at least %d", lo)
		}
		return nil
	})
}

func askInt(message string, check func(int) error) (int, error) {
	var raw string
	validator := func(ans interface{}) error {
		s, ok := ans.(string)
		if !ok {
			return fmt.Errorf("expected a number")
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("%q is not a whole number", s)
		}
		return check(n)
	}
	if err := survey.AskOne(&survey.Input{Message: message}, &raw, survey.WithValidator(validator)); err != nil {
		return 0, err
	}
	return strconv.Atoi(raw)
}
