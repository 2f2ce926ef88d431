package domain

import "errors"

// 錯誤分類。usecase 以 fmt.Errorf("%w: ...") 包裝，
// 呼叫端用 errors.Is 判斷類別。
var (
	// ErrValidation 輸入不合法 (空訊息、超長、附件不允許)
	ErrValidation = errors.New("validation error")
	// ErrNotAuthorized 非對話成員的操作
	ErrNotAuthorized = errors.New("not authorized")
	// ErrNotFound 對話或訊息不存在
	ErrNotFound = errors.New("not found")
	// ErrConflict get-or-create 撞到唯一索引，內部以 re-fetch 自癒
	ErrConflict = errors.New("conflict")
	// ErrUpload 附件上傳失敗，重試由呼叫端決定
	ErrUpload = errors.New("upload error")
)
