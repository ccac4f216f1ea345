// Package i18n holds the user-facing strings of the form in Brazilian
// Portuguese (default) and English.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys.
const (
	KeyPageTitle        = "page.title"
	KeyResultHeading    = "result.heading"
	KeyCalculate        = "button.calculate"
	KeyClear            = "button.clear"
	KeyPlaceholder      = "input.placeholder"
	KeyErrorTitle       = "notice.error.title"
	KeyErrorMessage     = "notice.error.message"
	KeyValidationTitle  = "notice.validation.title"
	KeyValidationDetail = "notice.validation.message"
	KeyRateLimitTitle   = "notice.ratelimit.title"
	KeyRateLimitMessage = "notice.ratelimit.message"
	KeyReportTitle      = "report.title"
	KeyReportParameters = "report.parameters"
	KeyReportGenerated  = "report.generated"
)

var supported = []language.Tag{
	language.BrazilianPortuguese,
	language.English,
}

var entries = map[language.Tag]map[string]string{
	language.BrazilianPortuguese: {
		KeyPageTitle:        "Denavit-Hartenberg",
		KeyResultHeading:    "Resultado:",
		KeyCalculate:        "Calcular",
		KeyClear:            "Limpar",
		KeyPlaceholder:      "Insira o valor '%s'",
		KeyErrorTitle:       "Erro!",
		KeyErrorMessage:     "Dados inválidos, tente novamente.",
		KeyValidationTitle:  "Atenção!",
		KeyValidationDetail: "Preencha todos os campos.",
		KeyRateLimitTitle:   "Calma!",
		KeyRateLimitMessage: "Muitos cálculos seguidos, aguarde um momento.",
		KeyReportTitle:      "Denavit-Hartenberg - Resultado",
		KeyReportParameters: "Parâmetros",
		KeyReportGenerated:  "Gerado em %s",
	},
	language.English: {
		KeyPageTitle:        "Denavit-Hartenberg",
		KeyResultHeading:    "Result:",
		KeyCalculate:        "Calculate",
		KeyClear:            "Clear",
		KeyPlaceholder:      "Enter the value '%s'",
		KeyErrorTitle:       "Error!",
		KeyErrorMessage:     "Invalid data, please try again.",
		KeyValidationTitle:  "Attention!",
		KeyValidationDetail: "Fill in every field.",
		KeyRateLimitTitle:   "Slow down!",
		KeyRateLimitMessage: "Too many calculations, wait a moment.",
		KeyReportTitle:      "Denavit-Hartenberg - Result",
		KeyReportParameters: "Parameters",
		KeyReportGenerated:  "Generated at %s",
	},
}

// Bundle resolves message keys for a negotiated language.
type Bundle struct {
	cat     *catalog.Builder
	matcher language.Matcher
}

func NewBundle() *Bundle {
	b := catalog.NewBuilder(catalog.Fallback(supported[0]))
	for tag, msgs := range entries {
		for key, msg := range msgs {
			// Keys and messages are static; SetString only fails on bad tags.
			_ = b.SetString(tag, key, msg)
		}
	}
	return &Bundle{
		cat:     b,
		matcher: language.NewMatcher(supported),
	}
}

// Match picks the supported language closest to an Accept-Language
// header value. Unknown or empty input yields Brazilian Portuguese.
func (b *Bundle) Match(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return supported[0]
	}
	_, idx, conf := b.matcher.Match(tags...)
	if conf == language.No {
		return supported[0]
	}
	return supported[idx]
}

// Translator prints messages in one language.
type Translator struct {
	Tag     language.Tag
	printer *message.Printer
}

func (b *Bundle) Translator(tag language.Tag) *Translator {
	return &Translator{
		Tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(b.cat)),
	}
}

// T returns the message for key, formatted with args.
func (t *Translator) T(key string, args ...any) string {
	return t.printer.Sprintf(key, args...)
}

// Lang is the BCP 47 code, used for the html lang attribute.
func (t *Translator) Lang() string {
	return t.Tag.String()
}
