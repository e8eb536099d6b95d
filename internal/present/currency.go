package present

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Presenter renders prices for one locale
type Presenter struct {
	tag     language.Tag
	printer *message.Printer
}

// NewPresenter returns a presenter for a BCP 47 locale. An unparsable locale
// falls back to Australian English.
func NewPresenter(locale string) *Presenter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.MustParse("en-AU")
	}
	return &Presenter{tag: tag, printer: message.NewPrinter(tag)}
}

// Locale returns the locale in use
func (p *Presenter) Locale() string {
	return p.tag.String()
}

// FormatPrice renders a price as whole dollars with digit grouping, e.g.
// "$1,234,567". Halves round to even.
func (p *Presenter) FormatPrice(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return p.printer.Sprintf("$%v", v)
	}
	r := math.RoundToEven(v)
	if r == 0 {
		// drop the sign of -0
		r = 0
	}
	return p.printer.Sprintf("$%.0f", r)
}

// Headline is the sentence shown under the form
func (p *Presenter) Headline(v float64) string {
	return "The estimated price of the property is: " + p.FormatPrice(v)
}
