package messaging

import "strings"

// sanitizePhone strips everything except digits.
func sanitizePhone(value string) string {
	var digits strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	return digits.String()
}

// NormalizePhone converts a raw phone value to canonical international form:
// country code first, digits only. Brazilian national numbers (10 or 11
// digits) receive the default country code.
func NormalizePhone(value, defaultCountryCode string) string {
	digits := sanitizePhone(value)
	if digits == "" {
		return ""
	}
	if defaultCountryCode == "" {
		defaultCountryCode = "55"
	}
	// 10/11 digits is a national number (area code + subscriber); longer
	// values are assumed to already carry a country code.
	if len(digits) == 10 || len(digits) == 11 {
		digits = defaultCountryCode + digits
	}
	return digits
}

// NormalizeE164 returns the +-prefixed form expected by the gateway provider.
func NormalizeE164(value, defaultCountryCode string) string {
	digits := NormalizePhone(value, defaultCountryCode)
	if digits == "" {
		return ""
	}
	return "+" + digits
}

// PhoneFromJID extracts the phone digits from a WhatsApp JID such as
// "5511999990000@s.whatsapp.net".
func PhoneFromJID(jid string) string {
	if at := strings.IndexByte(jid, '@'); at >= 0 {
		jid = jid[:at]
	}
	return sanitizePhone(jid)
}
