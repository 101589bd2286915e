package emulator

import (
	"fmt"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/selectmini/internal/logging"
)

const (
	// DefaultInstance is the advertised mDNS instance name
	DefaultInstance = "MPSelectMini"

	serviceType   = "_http._tcp"
	serviceDomain = "local."
)

// advertise registers the firmware port as an mDNS HTTP service
func (s *Server) advertise() error {
	instance := s.config.Instance
	if instance == "" {
		instance = DefaultInstance
	}

	txt := []string{"path=/", "model=MPSelectMini"}
	if addr := s.StatusAddr(); addr != nil {
		txt = append(txt, "status="+addr.String())
	}

	srv, err := zeroconf.Register(instance, serviceType, serviceDomain, s.Port(), txt, nil)
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}
	s.advert = srv

	logging.Info("Advertising emulator over mDNS",
		zap.String("instance", instance),
		zap.String("service", serviceType),
		zap.Int("port", s.Port()),
	)
	return nil
}
