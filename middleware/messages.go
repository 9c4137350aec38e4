package middleware

import (
	"net/http"
	"strings"

	goPassport "github.com/MrEthical07/goPassport"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// LangParam is the query parameter that overrides Accept-Language.
const LangParam = "lang"

var (
	traditionalChinese = language.MustParse("zh-TW")
	supportedTags      = []language.Tag{language.English, traditionalChinese}
	tagMatcher         = language.NewMatcher(supportedTags)
)

var messageCatalog = map[language.Tag]map[goPassport.RejectionKind]string{
	language.English: {
		goPassport.KindUnknownAccount:  "Account does not exist",
		goPassport.KindInvalidPassword: "Incorrect password",
		goPassport.KindExpired:         "Login expired",
		goPassport.KindInvalidToken:    "Login invalid",
		goPassport.KindUnknown:         "Unknown error",
	},
	traditionalChinese: {
		goPassport.KindUnknownAccount:  "使用者帳號不存在",
		goPassport.KindInvalidPassword: "使用者密碼錯誤",
		goPassport.KindExpired:         "登入過期",
		goPassport.KindInvalidToken:    "登入無效",
		goPassport.KindUnknown:         "未知錯誤",
	},
}

func init() {
	for tag, msgs := range messageCatalog {
		for kind, text := range msgs {
			if err := message.SetString(tag, messageKey(kind), text); err != nil {
				panic(err)
			}
		}
	}
}

func messageKey(kind goPassport.RejectionKind) string {
	return "passport." + kind.String()
}

// SupportedLanguages lists the languages rejection messages are available in.
func SupportedLanguages() []language.Tag {
	return append([]language.Tag(nil), supportedTags...)
}

// ResolveLanguage picks the best supported language for r from the lang query
// parameter, then Accept-Language. English is the fallback.
func ResolveLanguage(r *http.Request) language.Tag {
	if r == nil {
		return language.English
	}

	var candidates []language.Tag
	if r.URL != nil {
		if v := strings.TrimSpace(r.URL.Query().Get(LangParam)); v != "" {
			if tag, err := language.Parse(v); err == nil {
				candidates = append(candidates, tag)
			}
		}
	}
	if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil {
			candidates = append(candidates, tags...)
		}
	}
	if len(candidates) == 0 {
		return language.English
	}

	_, idx, conf := tagMatcher.Match(candidates...)
	if conf == language.No {
		return language.English
	}
	return supportedTags[idx]
}

// Message returns the user-facing text for kind in tag.
func Message(tag language.Tag, kind goPassport.RejectionKind) string {
	if kind == goPassport.KindNone {
		return ""
	}
	if _, ok := messageCatalog[language.English][kind]; !ok {
		kind = goPassport.KindUnknown
	}
	return message.NewPrinter(tag).Sprintf(messageKey(kind))
}
