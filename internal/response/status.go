package response

// StatusCode represents HTTP status codes
type StatusCode int

const (
	StatusOK                  StatusCode = 200
	StatusMovedPermanently    StatusCode = 301
	StatusFound               StatusCode = 302
	StatusBadRequest          StatusCode = 400
	StatusNotFound            StatusCode = 404
	StatusInternalServerError StatusCode = 500
	StatusServiceUnavailable  StatusCode = 503
)

// statusText maps status codes to reason phrases
var statusText = map[StatusCode]string{
	StatusOK:                  "OK",
	StatusMovedPermanently:    "Moved Permanently",
	StatusFound:               "Found",
	StatusBadRequest:          "Bad Request",
	StatusNotFound:            "Not Found",
	StatusInternalServerError: "Internal Server Error",
	StatusServiceUnavailable:  "Service Unavailable",
}

// StatusText returns the reason phrase for a status code
func StatusText(code StatusCode) string {
	if text, ok := statusText[code]; ok {
		return text
	}
	return "Unknown Status"
}

// IsSuccess returns true for 2xx status codes
func (code StatusCode) IsSuccess() bool {
	return code >= 200 && code < 300
}

// IsRedirect returns true for 3xx status codes
func (code StatusCode) IsRedirect() bool {
	return code >= 300 && code < 400
}
