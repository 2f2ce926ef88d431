package router

import (
	"context"

	"cleaning_market_service/internal/chat/app"
	"cleaning_market_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes 注冊聊天相關的路由
func RegisterRoutes(r *fiber.App, chatWebsocket *app.ChatWebsocketHandler, chatHTTP *app.ChatHTTPHandler) {
	r.Use(middlewares.JWTMiddleware())

	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		chatWebsocket.HandleConnection(context.Background(), c)
	}))

	r.Post("/conversations", chatHTTP.CreateConversation)
	r.Get("/conversations", chatHTTP.GetConversations)
	r.Get("/conversations/search", chatHTTP.SearchConversations)
	r.Get("/conversations/:id/messages", chatHTTP.GetMessages)
	r.Post("/conversations/:id/messages", chatHTTP.SendMessage)
	r.Post("/conversations/:id/booking", chatHTTP.SendBookingCard)
	r.Post("/conversations/:id/read", chatHTTP.MarkRead)
	r.Get("/conversations/:id/unread", chatHTTP.GetUnread)
	r.Get("/conversations/:id/presence", chatHTTP.GetPresence)
	r.Post("/presence/heartbeat", chatHTTP.PostHeartbeat)
}
