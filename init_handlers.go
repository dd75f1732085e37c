// Package main, Handler katmanı başlatma.
package main

import "github.com/akinalp/authgate/handlers"

// Handlers, handler instance'larını tutan container struct.
type Handlers struct {
	Auth *handlers.AuthHandler
	User *handlers.UserHandler
}

func initHandlers(svcs *Services) *Handlers {
	return &Handlers{
		Auth: handlers.NewAuthHandler(svcs.Auth),
		User: handlers.NewUserHandler(svcs.Auth),
	}
}
