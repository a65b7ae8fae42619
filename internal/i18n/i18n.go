// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package i18n holds the user-facing strings of the bot in both supported
// languages.
package i18n

// Tag identifies a reply language.
type Tag string

const (
	Russian Tag = "ru"
	English Tag = "en"
)

// Default is the language used for chats that haven't chosen one.
const Default = Russian

// Tags lists supported languages in the order they are offered to users.
var Tags = []Tag{Russian, English}

// Parse returns the Tag for s and whether s names a supported language.
func Parse(s string) (Tag, bool) {
	switch Tag(s) {
	case Russian, English:
		return Tag(s), true
	}
	return "", false
}

// Messages is a set of reply strings in one language. Strings ending in "f"
// are format strings.
type Messages struct {
	// Label shown on the language selection button.
	LanguageName string

	ChooseLanguage string
	LanguageSet    string
	Greeting       string
	EmptyQuery     string
	Searchingf     string // truck query
	NotFoundf      string // truck query
	UpstreamFailed string
	Failed         string

	Truck          string
	VIN            string
	Plate          string
	CheckEngine    string
	NoFaults       string
	ActiveFaults   string
	Codef          string // code
	Occurrencesf   string // count
	UnknownFault   string
	Advice         string
	AdvicePrompt   string
	ProprietaryTag string
}

var catalog = map[Tag]Messages{
	Russian: {
		LanguageName:   "🇷🇺 Русский",
		ChooseLanguage: "Выбери язык ответов:",
		LanguageSet:    "Язык установлен: русский. Отправь номер трака (как в Samsara), а я покажу его активные ошибки.",
		Greeting:       "Отправь номер трака (как в Samsara), а я покажу его активные ошибки.",
		EmptyQuery:     "Отправь номер трака одной строкой.",
		Searchingf:     "Ищу трак `%s` в Samsara...",
		NotFoundf:      "Трак `%s` не найден в Samsara.",
		UpstreamFailed: "Не удалось выполнить запрос к Samsara. Попробуй позже.",
		Failed:         "Произошла ошибка при запросе к Samsara. Сообщи администратору.",

		Truck:          "Трак",
		VIN:            "VIN",
		Plate:          "Номер",
		CheckEngine:    "Check Engine",
		NoFaults:       "Активных ошибок не найдено.",
		ActiveFaults:   "Активные ошибки",
		Codef:          "Код: `%s`",
		Occurrencesf:   "(повторений: %d)",
		UnknownFault:   "Неизвестная ошибка",
		Advice:         "Рекомендации",
		AdvicePrompt:   "Отвечай на русском языке.",
		ProprietaryTag: "проприетарный код производителя",
	},
	English: {
		LanguageName:   "🇬🇧 English",
		ChooseLanguage: "Choose the reply language:",
		LanguageSet:    "Language set to English. Send a truck number (as in Samsara) and I'll show its active faults.",
		Greeting:       "Send a truck number (as in Samsara) and I'll show its active faults.",
		EmptyQuery:     "Send the truck number in one line.",
		Searchingf:     "Looking up truck `%s` in Samsara...",
		NotFoundf:      "Truck `%s` was not found in Samsara.",
		UpstreamFailed: "Could not complete the Samsara lookup. Try again later.",
		Failed:         "Something went wrong while querying Samsara. Please tell the administrator.",

		Truck:          "Truck",
		VIN:            "VIN",
		Plate:          "Plate",
		CheckEngine:    "Check Engine",
		NoFaults:       "No active faults found.",
		ActiveFaults:   "Active faults",
		Codef:          "Code: `%s`",
		Occurrencesf:   "(occurrences: %d)",
		UnknownFault:   "Unknown fault",
		Advice:         "Advice",
		AdvicePrompt:   "Answer in English.",
		ProprietaryTag: "manufacturer proprietary code",
	},
}

// For returns the messages for tag, falling back to [Default] for unknown
// tags.
func For(tag Tag) Messages {
	if m, ok := catalog[tag]; ok {
		return m
	}
	return catalog[Default]
}
