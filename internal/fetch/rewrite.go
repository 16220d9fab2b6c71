// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package fetch

import (
	"net/url"
	"strings"
)

// RewriteURL maps code host web URLs to raw content URLs:
//
//	https://github.com/o/r/blob/main/x.go  -> https://raw.githubusercontent.com/o/r/main/x.go
//	https://github.com/o/r/tree/main/x.go  -> https://raw.githubusercontent.com/o/r/main/x.go
//	https://gitlab.com/o/r/-/blob/main/x.go -> https://gitlab.com/o/r/-/raw/main/x.go
//
// Anything else is returned unchanged.
func RewriteURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case host == "github.com" || host == "www.github.com":
		parts := strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 4)
		if len(parts) == 4 && (parts[2] == "blob" || parts[2] == "tree") {
			u.Host = "raw.githubusercontent.com"
			u.Path = "/" + parts[0] + "/" + parts[1] + "/" + parts[3]
			u.RawQuery = ""
			return u.String()
		}
	case strings.Contains(host, "gitlab"):
		for _, marker := range []string{"/-/blob/", "/-/tree/"} {
			if strings.Contains(u.Path, marker) {
				u.Path = strings.Replace(u.Path, marker, "/-/raw/", 1)
				return u.String()
			}
		}
	}
	return raw
}
