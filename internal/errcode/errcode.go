package errcode

// 导出通知中的错误码约定：
// - 0：无错误
// - 4xxx：输入或资源问题，重试无意义
// - 5xxx：系统错误，可重试
const (
	OK             = 0
	ResumeMissing  = 4004
	InvalidResume  = 4000
	SystemError    = 5000
	RenderFailed   = 5001
	UploadFailed   = 5002
	RenderTimedOut = 5004
)
