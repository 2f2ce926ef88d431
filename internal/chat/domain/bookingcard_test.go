package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// 測試 DecodeBookingCard 合併 Time 行
func TestDecodeBookingCard_CombinedTimeLine(t *testing.T) {
	text := "📋 **Booking Details**\n" +
		"🧹 Service: Deep Clean\n" +
		"📅 Date: 2024-05-01\n" +
		"🕐 Time: 14:00 • 2 hours\n" +
		"💰 Total: $120"

	card, ok := DecodeBookingCard(text)

	assert.True(t, ok)
	assert.Equal(t, "Deep Clean", card.Service)
	assert.Equal(t, "2024-05-01", card.Date)
	assert.Equal(t, "14:00", card.Time)
	assert.Equal(t, "2 hours", card.Duration)
	assert.Equal(t, "$120", card.Total)
	assert.Empty(t, card.Location)
	assert.Empty(t, card.Notes)
}

// 測試 DecodeBookingCard 獨立 Duration 行優先
func TestDecodeBookingCard_StandaloneDurationLine(t *testing.T) {
	text := "📋 **Booking Details**\n" +
		"🕐 Time: 09:30\n" +
		"⏱️ Duration: 3 hours\n" +
		"📍 Location: 221B Baker St\n" +
		"📝 Notes: bring supplies"

	card, ok := DecodeBookingCard(text)

	assert.True(t, ok)
	assert.Equal(t, "09:30", card.Time)
	assert.Equal(t, "3 hours", card.Duration)
	assert.Equal(t, "221B Baker St", card.Location)
	assert.Equal(t, "bring supplies", card.Notes)
}

// 測試非微格式文字
func TestDecodeBookingCard_PlainText(t *testing.T) {
	card, ok := DecodeBookingCard("hello")

	assert.False(t, ok)
	assert.Equal(t, BookingCard{}, card)
	assert.False(t, IsBookingCard("hello"))

	// 哨兵必須在首行
	_, ok = DecodeBookingCard("hi\n📋 **Booking Details**")
	assert.False(t, ok)
}

// 測試 Encode / Decode 往返
func TestBookingCard_EncodeRoundTrip(t *testing.T) {
	card := BookingCard{
		Service:  "Move-out Clean",
		Date:     "2024-06-15",
		Time:     "10:00",
		Duration: "4 hours",
		Total:    "$240",
	}

	text := card.Encode()
	assert.True(t, IsBookingCard(text))

	decoded, ok := DecodeBookingCard(text)
	assert.True(t, ok)
	assert.Equal(t, card, decoded)
}

// 測試 CRLF 行尾
func TestDecodeBookingCard_CRLF(t *testing.T) {
	text := "📋 **Booking Details**\r\n🧹 Service: Standard Clean\r\n💰 Total: $60"

	card, ok := DecodeBookingCard(text)

	assert.True(t, ok)
	assert.Equal(t, "Standard Clean", card.Service)
	assert.Equal(t, "$60", card.Total)
}
