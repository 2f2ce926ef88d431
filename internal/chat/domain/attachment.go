package domain

// AttachmentContext definition attachment validate context
type AttachmentContext string

const (
	// AttachmentChatDocument 聊天附件：圖片與文件，上限 10MB
	AttachmentChatDocument AttachmentContext = "chat_document"
	// AttachmentPaymentProof 付款證明：僅圖片，上限 5MB
	AttachmentPaymentProof AttachmentContext = "payment_proof"
)

const (
	// ChatDocumentMaxBytes 聊天附件大小上限
	ChatDocumentMaxBytes int64 = 10 << 20
	// PaymentProofMaxBytes 付款證明大小上限
	PaymentProofMaxBytes int64 = 5 << 20
)

// ImageContentTypes 兩種 context 都允許的圖片類型
var ImageContentTypes = []string{
	"image/jpeg",
	"image/png",
	"image/webp",
	"image/gif",
}

// DocumentContentTypes 僅聊天 context 允許的文件類型
var DocumentContentTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// AttachmentUpload 待上傳的附件內容
type AttachmentUpload struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Data        []byte `json:"-"`
}

// AttachmentRef 上傳完成後的持久引用，存在訊息文件內
type AttachmentRef struct {
	ObjectName  string `bson:"object_name" json:"object_name"`
	URL         string `bson:"url" json:"url"`
	ContentType string `bson:"content_type" json:"content_type"`
	Size        int64  `bson:"size" json:"size"`
}
