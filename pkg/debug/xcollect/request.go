package xcollect

import (
	"maps"
	"mime"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// maskedHeaders 输出时被遮蔽的请求头
var maskedHeaders = map[string]struct{}{
	"Authorization":       {},
	"Proxy-Authorization": {},
}

const maskedValue = "******"

// RequestData request 面板数据（请求与响应）。
type RequestData struct {
	Format            string              `json:"format"`
	ContentType       string              `json:"content_type"`
	StatusText        string              `json:"status_text"`
	StatusCode        int                 `json:"status_code"`
	PathInfo          string              `json:"path_info"`
	RequestQuery      map[string][]string `json:"request_query"`
	RequestRequest    map[string][]string `json:"request_request"`
	RequestHeaders    map[string][]string `json:"request_headers"`
	RequestServer     map[string]string   `json:"request_server"`
	RequestCookies    map[string]string   `json:"request_cookies"`
	ResponseHeaders   map[string][]string `json:"response_headers"`
	SessionAttributes map[string]any      `json:"session_attributes,omitempty"`
}

// RequestCollector 在响应生成后采集请求与响应数据。
type RequestCollector struct {
	data RequestData
}

// NewRequest 创建 request 采集器。数据在创建时复制，之后请求或响应头的修改不会反映到面板中。
func NewRequest(r *http.Request, status int, respHeader http.Header, session map[string]any) *RequestCollector {
	contentType := respHeader.Get("Content-Type")
	data := RequestData{
		Format:          formatOf(contentType),
		ContentType:     contentType,
		StatusText:      http.StatusText(status),
		StatusCode:      status,
		PathInfo:        r.URL.Path,
		RequestQuery:    cloneValues(r.URL.Query()),
		RequestRequest:  cloneValues(r.PostForm),
		RequestHeaders:  maskHeaders(r.Header),
		RequestServer:   serverVars(r),
		RequestCookies:  cookies(r),
		ResponseHeaders: maskHeaders(respHeader),
	}
	if len(session) > 0 {
		data.SessionAttributes = maps.Clone(session)
	}
	return &RequestCollector{data: data}
}

// Name 返回 "request"。
func (c *RequestCollector) Name() string { return "request" }

// Collect 返回 RequestData。
func (c *RequestCollector) Collect() any { return c.data }

// RequestInputData 基础请求面板数据（仅请求侧）。
type RequestInputData struct {
	Get     map[string][]string `json:"get"`
	Post    map[string][]string `json:"post"`
	Cookies map[string]string   `json:"cookies"`
	Server  map[string]string   `json:"server"`
	Headers map[string][]string `json:"headers"`
}

// RequestInputCollector 启动时即采集的基础请求数据，同样使用 "request" 名称。
type RequestInputCollector struct {
	data RequestInputData
}

// NewRequestInput 创建基础请求采集器。
func NewRequestInput(r *http.Request) *RequestInputCollector {
	return &RequestInputCollector{data: RequestInputData{
		Get:     cloneValues(r.URL.Query()),
		Post:    cloneValues(r.PostForm),
		Cookies: cookies(r),
		Server:  serverVars(r),
		Headers: maskHeaders(r.Header),
	}}
}

// Name 返回 "request"。
func (c *RequestInputCollector) Name() string { return "request" }

// Collect 返回 RequestInputData。
func (c *RequestInputCollector) Collect() any { return c.data }

func formatOf(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	switch {
	case strings.Contains(mediaType, "html"):
		return "html"
	case strings.Contains(mediaType, "json"):
		return "json"
	case strings.Contains(mediaType, "xml"):
		return "xml"
	case strings.HasPrefix(mediaType, "text/"):
		return "txt"
	default:
		return mediaType
	}
}

func cloneValues(v url.Values) map[string][]string {
	out := make(map[string][]string, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}

func maskHeaders(h http.Header) map[string][]string {
	out := make(map[string][]string, len(h))
	for k, vals := range h {
		if _, ok := maskedHeaders[http.CanonicalHeaderKey(k)]; ok {
			out[k] = []string{maskedValue}
			continue
		}
		out[k] = append([]string(nil), vals...)
	}
	return out
}

func cookies(r *http.Request) map[string]string {
	cs := r.Cookies()
	out := make(map[string]string, len(cs))
	for _, c := range cs {
		out[c.Name] = c.Value
	}
	return out
}

func serverVars(r *http.Request) map[string]string {
	return map[string]string{
		"REQUEST_METHOD":  r.Method,
		"REQUEST_URI":     r.RequestURI,
		"SERVER_PROTOCOL": r.Proto,
		"HTTP_HOST":       r.Host,
		"REMOTE_ADDR":     r.RemoteAddr,
		"QUERY_STRING":    r.URL.RawQuery,
	}
}

// sortedKeys 返回 map 的有序键。
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
