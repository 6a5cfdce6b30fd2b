// internal/handlers/api_server.go
package handlers

import (
	"github.com/jason-s-yu/minesweep/internal/service"
	"github.com/sirupsen/logrus"
)

// GameServer carries what every handler needs: the action service that owns all
// lobby and game mutations, and the logger.
type GameServer struct {
	Service *service.Service
	Logger  *logrus.Logger
}

// NewGameServer wires handlers to svc.
func NewGameServer(svc *service.Service, logger *logrus.Logger) *GameServer {
	return &GameServer{Service: svc, Logger: logger}
}
