package httpclient

import (
	"strconv"

	"github.com/kbukum/birdkit/errors"
	"github.com/kbukum/birdkit/jsonvalue"
)

// statusPhrases follows the IANA registry as the API documents it, including
// the codes it lists as unassigned.
var statusPhrases = map[int]string{
	400: "Bad Request",
	401: "Unauthorized",
	402: "Payment Required",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	406: "Not Acceptable",
	407: "Proxy Authentication Required",
	408: "Request Timeout",
	409: "Conflict",
	410: "Gone",
	411: "Length Required",
	412: "Precondition Failed",
	413: "Payload Too Large",
	414: "URI Too Long",
	415: "Unsupported Media Type",
	416: "Requested Range Not Satisfiable",
	417: "Expectation Failed",
	422: "Unprocessable Entity",
	423: "Locked",
	424: "Failed Dependency",
	425: "Unassigned",
	426: "Upgrade Required",
	427: "Unassigned",
	428: "Precondition Required",
	429: "Too Many Requests",
	430: "Unassigned",
	431: "Request Header Fields Too Large",
	432: "Unassigned",
	500: "Internal Server Error",
	501: "Not Implemented",
	502: "Bad Gateway",
	503: "Service Unavailable",
	504: "Gateway Timeout",
	505: "HTTP Version Not Supported",
	506: "Variant Also Negotiates",
	507: "Insufficient Storage",
	508: "Loop Detected",
	509: "Unassigned",
	510: "Not Extended",
	511: "Network Authentication Required",
}

// StatusDescription renders "HTTP Status <n>: <phrase>, Response: <body>" for
// known statuses and "HTTP Status <n>" otherwise.
func StatusDescription(status int, body string) string {
	s := "HTTP Status " + strconv.Itoa(status)
	if phrase, ok := statusPhrases[status]; ok {
		s += ": " + phrase + ", Response: " + body
	}
	return s
}

// Classify maps a completed exchange to nil (status < 400) or an
// ErrCodeHTTPStatus error carrying the status, body, headers and, when the
// body has one, the first API error code.
func Classify(env *ResponseEnvelope) error {
	if env.StatusCode < 400 {
		return nil
	}
	err := errors.HTTPStatus(env.StatusCode, StatusDescription(env.StatusCode, string(env.Body)), env.Body).
		WithHeaders(env.Headers)
	if code, ok := APIErrorCode(env.Body); ok {
		err.APICode = code
	}
	return err
}

// APIErrorCode extracts errors[0].code from an API error payload.
func APIErrorCode(body []byte) (int, bool) {
	doc, err := jsonvalue.Parse(body)
	if err != nil {
		return 0, false
	}
	code, ok := doc.Get("errors").Index(0).Get("code").Int()
	if !ok {
		return 0, false
	}
	return int(code), true
}
