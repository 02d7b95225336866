// Package translate localizes the messages of the vm16 packages.
package translate

import (
	"log"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/message"
)

// DefaultLocale is used when the host reports no locales.
const DefaultLocale = "en-US"

var printer *message.Printer

func init() {
	locales, err := locale.GetLocales()
	if err != nil {
		log.Printf("vm16: locale: %v", err)
	}

	if len(locales) == 0 {
		locales = []string{DefaultLocale}
	}

	printer = message.NewPrinter(message.MatchLanguage(locales...))
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	return printer.Sprintf(key, args...)
}
