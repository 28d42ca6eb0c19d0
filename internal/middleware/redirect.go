package middleware

import (
	"net/http"
	"strings"
)

// HTTPSRedirect：HTTP 请求 301 跳转到 HTTPS 服务端口，保留路径与查询串
func HTTPSRedirect(httpsAddr string) http.Handler {
	port := httpsAddr
	if i := strings.LastIndex(port, ":"); i != -1 {
		port = port[i+1:]
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		if i := strings.LastIndex(host, ":"); i != -1 && !strings.HasSuffix(host, "]") {
			host = host[:i]
		}
		if port != "" && port != "443" {
			host += ":" + port
		}
		http.Redirect(w, r, "https://"+host+r.URL.RequestURI(), http.StatusMovedPermanently)
	})
}
