package storage

import (
	"errors"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
)

var missingObjectCodes = map[string]struct{}{
	"nosuchkey":    {},
	"notfound":     {},
	"nosuchobject": {},
}

// IsNoSuchKey 判断错误是否表示导出对象已不存在。Bucket 不存在不算。
func IsNoSuchKey(err error) bool {
	if err == nil {
		return false
	}

	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		code := strings.ToLower(strings.TrimSpace(resp.Code))
		if code == "nosuchbucket" {
			return false
		}
		if _, ok := missingObjectCodes[code]; ok {
			return true
		}
		if resp.StatusCode == http.StatusNotFound {
			return true
		}
	}

	// 部分网关只返回文本。
	return strings.Contains(strings.ToLower(err.Error()), "specified key does not exist")
}
