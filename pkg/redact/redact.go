// redact — маскирование чувствительных значений перед записью в лог.
package redact

import "strings"

// Email оставляет первые два символа локальной части и домен:
// "admin@example.com" -> "ad***@example.com". Всё, что не похоже на адрес, -> "***".
func Email(s string) string {
	local, domain, ok := strings.Cut(s, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		return "***"
	}
	if len(local) <= 2 {
		return "***@" + domain
	}

	return local[:2] + "***@" + domain
}

// Token возвращает маркер вместо значения токена; пустой токен так и остаётся пустым,
// чтобы по логу было видно, был ли токен вообще.
func Token(s string) string {
	if s == "" {
		return ""
	}

	return "[REDACTED_TOKEN]"
}
