// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package translate formats user facing messages for the locale of the host.
package translate

import (
	"errors"
	"log"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/message"
)

var printer *message.Printer

func init() {
	locales, err := locale.GetLocales()
	if err != nil {
		log.Printf("nativecpu: locale: %v", err)
	}

	if len(locales) == 0 {
		locales = []string{"en-US"}
	}

	printer = message.NewPrinter(message.MatchLanguage(locales...))
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	return printer.Sprintf(key, args...)
}

// Error creates a sentinel error from an en-US message.
func Error(key message.Reference, args ...any) error {
	return errors.New(From(key, args...))
}
