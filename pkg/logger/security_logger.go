package logger

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"trend-go/pkg/utils"
)

var (
	urlPattern    = regexp.MustCompile(`https?://[^\s]+`)
	secretPattern = regexp.MustCompile(`(?i)(key|token|secret|password)[=:]\s*[^\s&]+`)
)

// SecurityLogger masks credentials, DSNs and endpoints before logging them.
type SecurityLogger struct {
	*Logger
}

// NewSecurityLogger creates a new security-aware logger
func NewSecurityLogger() *SecurityLogger {
	return &SecurityLogger{
		Logger: GetLogger(),
	}
}

// MaskURL keeps the host and replaces path and query with a short hash.
func (sl *SecurityLogger) MaskURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil || parsedURL.Host == "" {
		return "url#" + utils.ShortHash(rawURL)
	}

	return fmt.Sprintf("%s#%s", parsedURL.Host, utils.ShortHash(rawURL))
}

// MaskSecret never reveals a credential, only whether it is set and a
// fingerprint to tell two values apart.
func (sl *SecurityLogger) MaskSecret(secret string) string {
	if secret == "" {
		return "<unset>"
	}
	return "secret#" + utils.ShortHash(secret)
}

// MaskDSN strips the user info from a database DSN.
func (sl *SecurityLogger) MaskDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	parsed, err := url.Parse(dsn)
	if err != nil || parsed.Scheme == "" {
		// file paths (sqlite) carry no credentials
		return secretPattern.ReplaceAllString(dsn, "${1}=***")
	}
	parsed.User = nil
	parsed.RawQuery = ""
	return parsed.String()
}

// MaskSensitiveData masks the values of well-known sensitive keys.
func (sl *SecurityLogger) MaskSensitiveData(data map[string]interface{}) map[string]interface{} {
	masked := make(map[string]interface{}, len(data))

	for key, value := range data {
		lowerKey := strings.ToLower(key)
		str, isString := value.(string)

		switch {
		case !isString:
			masked[key] = value
		case strings.Contains(lowerKey, "key") || strings.Contains(lowerKey, "secret") ||
			strings.Contains(lowerKey, "token") || strings.Contains(lowerKey, "password"):
			masked[key] = sl.MaskSecret(str)
		case strings.Contains(lowerKey, "dsn"):
			masked[key] = sl.MaskDSN(str)
		case strings.Contains(lowerKey, "url") || strings.Contains(lowerKey, "endpoint"):
			masked[key] = sl.MaskURL(str)
		default:
			masked[key] = value
		}
	}

	return masked
}

// MaskLogMessage masks sensitive information in log messages
func (sl *SecurityLogger) MaskLogMessage(message string) string {
	masked := urlPattern.ReplaceAllStringFunc(message, sl.MaskURL)
	return secretPattern.ReplaceAllString(masked, "${1}=***")
}

// SafeInfo logs info with automatic sensitive data masking
func (sl *SecurityLogger) SafeInfo(msg string, fields map[string]interface{}) {
	if fields != nil {
		sl.Logger.WithFields(sl.MaskSensitiveData(fields)).Info(sl.MaskLogMessage(msg))
	} else {
		sl.Logger.Info(sl.MaskLogMessage(msg))
	}
}

// SafeWarn logs warning with automatic sensitive data masking
func (sl *SecurityLogger) SafeWarn(msg string, fields map[string]interface{}) {
	if fields != nil {
		sl.Logger.WithFields(sl.MaskSensitiveData(fields)).Warn(sl.MaskLogMessage(msg))
	} else {
		sl.Logger.Warn(sl.MaskLogMessage(msg))
	}
}

// SafeError logs error with automatic sensitive data masking
func (sl *SecurityLogger) SafeError(msg string, err error, fields map[string]interface{}) {
	maskedFields := map[string]interface{}{
		"error": sl.MaskLogMessage(err.Error()),
	}
	for k, v := range sl.MaskSensitiveData(fields) {
		maskedFields[k] = v
	}
	sl.Logger.WithFields(maskedFields).Error(sl.MaskLogMessage(msg))
}

var (
	securityLoggerInstance *SecurityLogger
	securityLoggerOnce     sync.Once
)

// GetSecurityLogger returns a singleton security logger
func GetSecurityLogger() *SecurityLogger {
	securityLoggerOnce.Do(func() {
		securityLoggerInstance = NewSecurityLogger()
	})
	return securityLoggerInstance
}
