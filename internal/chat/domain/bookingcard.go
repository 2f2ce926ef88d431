package domain

import "strings"

// 預約確認摘要以純文字微格式嵌在訊息內：訊息欄位沒有
// 「種類」欄，靠首行哨兵辨識；舊版或純文字渲染端仍可
// 直接顯示整段文字。

// BookingCardSentinel 微格式首行哨兵
const BookingCardSentinel = "📋 **Booking Details**"

// 欄位標籤 token，行首固定
const (
	labelService  = "🧹 Service:"
	labelDate     = "📅 Date:"
	labelTime     = "🕐 Time:"
	labelDuration = "⏱️ Duration:"
	labelLocation = "📍 Location:"
	labelNotes    = "📝 Notes:"
	labelTotal    = "💰 Total:"
)

// timeDurationDelim Time 行內時刻與時長的分隔符
// (無獨立 Duration 行時使用)
const timeDurationDelim = " • "

// BookingCard 解出的預約摘要。缺的標籤行留空字串，不報錯。
type BookingCard struct {
	Service  string `json:"service,omitempty"`
	Date     string `json:"date,omitempty"`
	Time     string `json:"time,omitempty"`
	Duration string `json:"duration,omitempty"`
	Location string `json:"location,omitempty"`
	Notes    string `json:"notes,omitempty"`
	Total    string `json:"total,omitempty"`
}

// IsBookingCard check text starts with the sentinel line
func IsBookingCard(text string) bool {
	first, _, _ := strings.Cut(text, "\n")
	return strings.TrimRight(first, "\r") == BookingCardSentinel
}

// DecodeBookingCard best-effort 解出各欄位。
// 非微格式回傳 (zero, false)；欄位缺漏不是錯誤。
func DecodeBookingCard(text string) (BookingCard, bool) {
	var card BookingCard
	if !IsBookingCard(text) {
		return card, false
	}

	for _, line := range strings.Split(text, "\n")[1:] {
		line = strings.TrimRight(line, "\r")
		switch {
		case strings.HasPrefix(line, labelService):
			card.Service = strings.TrimSpace(strings.TrimPrefix(line, labelService))
		case strings.HasPrefix(line, labelDate):
			card.Date = strings.TrimSpace(strings.TrimPrefix(line, labelDate))
		case strings.HasPrefix(line, labelTime):
			card.Time = strings.TrimSpace(strings.TrimPrefix(line, labelTime))
		case strings.HasPrefix(line, labelDuration):
			card.Duration = strings.TrimSpace(strings.TrimPrefix(line, labelDuration))
		case strings.HasPrefix(line, labelLocation):
			card.Location = strings.TrimSpace(strings.TrimPrefix(line, labelLocation))
		case strings.HasPrefix(line, labelNotes):
			card.Notes = strings.TrimSpace(strings.TrimPrefix(line, labelNotes))
		case strings.HasPrefix(line, labelTotal):
			card.Total = strings.TrimSpace(strings.TrimPrefix(line, labelTotal))
		}
	}

	// 無獨立 Duration 行時，Time 行可合併 "14:00 • 2 hours"
	if card.Duration == "" {
		if t, d, ok := strings.Cut(card.Time, timeDurationDelim); ok {
			card.Time = strings.TrimSpace(t)
			card.Duration = strings.TrimSpace(d)
		}
	}

	return card, true
}

// Encode 渲染回微格式文字。空欄位不輸出；
// Time 與 Duration 都有值時合併在 Time 行。
func (c BookingCard) Encode() string {
	lines := []string{BookingCardSentinel}

	appendLine := func(label, val string) {
		if val != "" {
			lines = append(lines, label+" "+val)
		}
	}

	appendLine(labelService, c.Service)
	appendLine(labelDate, c.Date)
	switch {
	case c.Time != "" && c.Duration != "":
		lines = append(lines, labelTime+" "+c.Time+timeDurationDelim+c.Duration)
	case c.Time != "":
		appendLine(labelTime, c.Time)
	case c.Duration != "":
		appendLine(labelDuration, c.Duration)
	}
	appendLine(labelLocation, c.Location)
	appendLine(labelNotes, c.Notes)
	appendLine(labelTotal, c.Total)

	return strings.Join(lines, "\n")
}
