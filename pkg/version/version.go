package version

import (
	"net/http"
	"strings"
)

// version is the current version of apnode.
// Set using -ldflags "-X go.apnode.dev/apnode/pkg/version.version=v1.2.3"
var version string = "unknown"

func String() string {
	return version
}

// UserAgent is sent by the status client when querying a node.
func UserAgent() string {
	s := strings.Builder{}
	s.WriteString("apnode/")
	if v := String(); v != "" {
		s.WriteString(v)
	} else {
		s.WriteString("dirty")
	}
	return s.String()
}

func UserAgentHeader() http.Header {
	h := make(http.Header)
	h.Set("User-Agent", UserAgent())
	return h
}
