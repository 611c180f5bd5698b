// Package langmeta provides a shared locale metadata registry (English
// and native display names) used by the state document and CLI output.
package langmeta

import "strings"

// Meta describes locale display metadata.
type Meta struct {
	// EnglishName is the locale's name in English.
	EnglishName string
	// LocalName is the locale's name in its own language.
	LocalName string
}

// Registry contains canonical locale metadata.
// Variants like pt_BR are resolved in Resolve() via normalization and
// base-tag fallback.
var Registry = map[string]Meta{
	"af":    {EnglishName: "Afrikaans", LocalName: "Afrikaans"},
	"ar":    {EnglishName: "Arabic", LocalName: "العربية"},
	"az":    {EnglishName: "Azerbaijani", LocalName: "Azərbaycanca"},
	"be":    {EnglishName: "Belarusian", LocalName: "Беларуская"},
	"bg":    {EnglishName: "Bulgarian", LocalName: "Български"},
	"bn":    {EnglishName: "Bengali", LocalName: "বাংলা"},
	"bs":    {EnglishName: "Bosnian", LocalName: "Bosanski"},
	"ca":    {EnglishName: "Catalan", LocalName: "Català"},
	"cs":    {EnglishName: "Czech", LocalName: "Čeština"},
	"cy":    {EnglishName: "Welsh", LocalName: "Cymraeg"},
	"da":    {EnglishName: "Danish", LocalName: "Dansk"},
	"de":    {EnglishName: "German", LocalName: "Deutsch"},
	"de-AT": {EnglishName: "German (Austria)", LocalName: "Deutsch (Österreich)"},
	"de-CH": {EnglishName: "German (Switzerland)", LocalName: "Deutsch (Schweiz)"},
	"de-DE": {EnglishName: "German (Germany)", LocalName: "Deutsch (Deutschland)"},
	"el":    {EnglishName: "Greek", LocalName: "Ελληνικά"},
	"en":    {EnglishName: "English", LocalName: "English"},
	"en-AU": {EnglishName: "English (Australia)", LocalName: "English (Australia)"},
	"en-GB": {EnglishName: "English (UK)", LocalName: "English (UK)"},
	"en-US": {EnglishName: "English (US)", LocalName: "English (US)"},
	"es":    {EnglishName: "Spanish", LocalName: "Español"},
	"es-AR": {EnglishName: "Spanish (Argentina)", LocalName: "Español (Argentina)"},
	"es-ES": {EnglishName: "Spanish (Spain)", LocalName: "Español (España)"},
	"es-MX": {EnglishName: "Spanish (Mexico)", LocalName: "Español (México)"},
	"et":    {EnglishName: "Estonian", LocalName: "Eesti"},
	"eu":    {EnglishName: "Basque", LocalName: "Euskara"},
	"fa":    {EnglishName: "Persian", LocalName: "فارسی"},
	"fi":    {EnglishName: "Finnish", LocalName: "Suomi"},
	"fr":    {EnglishName: "French", LocalName: "Français"},
	"fr-BE": {EnglishName: "French (Belgium)", LocalName: "Français (Belgique)"},
	"fr-CA": {EnglishName: "French (Canada)", LocalName: "Français (Canada)"},
	"fr-FR": {EnglishName: "French (France)", LocalName: "Français (France)"},
	"ga":    {EnglishName: "Irish", LocalName: "Gaeilge"},
	"gl":    {EnglishName: "Galician", LocalName: "Galego"},
	"he":    {EnglishName: "Hebrew", LocalName: "עברית"},
	"hi":    {EnglishName: "Hindi", LocalName: "हिन्दी"},
	"hr":    {EnglishName: "Croatian", LocalName: "Hrvatski"},
	"hu":    {EnglishName: "Hungarian", LocalName: "Magyar"},
	"hy":    {EnglishName: "Armenian", LocalName: "Հայերեն"},
	"id":    {EnglishName: "Indonesian", LocalName: "Bahasa Indonesia"},
	"is":    {EnglishName: "Icelandic", LocalName: "Íslenska"},
	"it":    {EnglishName: "Italian", LocalName: "Italiano"},
	"it-IT": {EnglishName: "Italian (Italy)", LocalName: "Italiano (Italia)"},
	"ja":    {EnglishName: "Japanese", LocalName: "日本語"},
	"ja-JP": {EnglishName: "Japanese (Japan)", LocalName: "日本語（日本）"},
	"ka":    {EnglishName: "Georgian", LocalName: "ქართული"},
	"kk":    {EnglishName: "Kazakh", LocalName: "Қазақ тілі"},
	"ko":    {EnglishName: "Korean", LocalName: "한국어"},
	"ko-KR": {EnglishName: "Korean (Korea)", LocalName: "한국어(대한민국)"},
	"lt":    {EnglishName: "Lithuanian", LocalName: "Lietuvių"},
	"lv":    {EnglishName: "Latvian", LocalName: "Latviešu"},
	"mk":    {EnglishName: "Macedonian", LocalName: "Македонски"},
	"ms":    {EnglishName: "Malay", LocalName: "Bahasa Melayu"},
	"nb":    {EnglishName: "Norwegian Bokmål", LocalName: "Norsk bokmål"},
	"nl":    {EnglishName: "Dutch", LocalName: "Nederlands"},
	"pl":    {EnglishName: "Polish", LocalName: "Polski"},
	"pt":    {EnglishName: "Portuguese", LocalName: "Português"},
	"pt-BR": {EnglishName: "Portuguese (Brazil)", LocalName: "Português (Brasil)"},
	"pt-PT": {EnglishName: "Portuguese (Portugal)", LocalName: "Português (Portugal)"},
	"ro":    {EnglishName: "Romanian", LocalName: "Română"},
	"ru":    {EnglishName: "Russian", LocalName: "Русский"},
	"ru-RU": {EnglishName: "Russian (Russia)", LocalName: "Русский (Россия)"},
	"sk":    {EnglishName: "Slovak", LocalName: "Slovenčina"},
	"sl":    {EnglishName: "Slovenian", LocalName: "Slovenščina"},
	"sq":    {EnglishName: "Albanian", LocalName: "Shqip"},
	"sr":    {EnglishName: "Serbian", LocalName: "Српски"},
	"sv":    {EnglishName: "Swedish", LocalName: "Svenska"},
	"th":    {EnglishName: "Thai", LocalName: "ไทย"},
	"tr":    {EnglishName: "Turkish", LocalName: "Türkçe"},
	"uk":    {EnglishName: "Ukrainian", LocalName: "Українська"},
	"uz":    {EnglishName: "Uzbek", LocalName: "O'zbek"},
	"vi":    {EnglishName: "Vietnamese", LocalName: "Tiếng Việt"},
	"zh":    {EnglishName: "Chinese", LocalName: "中文"},
	"zh-CN": {EnglishName: "Chinese (Simplified)", LocalName: "简体中文"},
	"zh-TW": {EnglishName: "Chinese (Traditional)", LocalName: "繁體中文"},
}

func canonicalize(code string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(code), "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}

// Resolve returns best-effort locale metadata, supporting variants like
// pt_BR and pt-BR and falling back to the base language tag. Unknown
// codes resolve to themselves so callers always get displayable names.
func Resolve(code string) Meta {
	if m, ok := Registry[code]; ok {
		return m
	}
	normalized := canonicalize(code)
	if m, ok := Registry[normalized]; ok {
		return m
	}
	if parts := strings.SplitN(normalized, "-", 2); len(parts) == 2 {
		if m, ok := Registry[parts[0]]; ok {
			return m
		}
	}
	return Meta{EnglishName: code, LocalName: code}
}
