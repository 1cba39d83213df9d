package main

import (
	"log"
	"os"
	"os/signal"
	"reflect"
	"syscall"

	"github.com/meridianfs/namefs/internal/config"
	"github.com/meridianfs/namefs/internal/log_service/zaplog"
	"github.com/meridianfs/namefs/internal/naming_service"
	"github.com/meridianfs/namefs/internal/rmi"
)

func main() {
	cfgPath := "./naming-server.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.LoadNamingConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ls, err := zaplog.New(cfg.LogDir, "naming-server", cfg.LogLevel)
	if err != nil {
		log.Fatalf("create log service: %v", err)
	}
	defer ls.Sync()

	ns := naming_service.New(cfg.ReplicationAlpha, ls)

	serviceSk, err := rmi.NewSkeleton(reflect.TypeOf((*naming_service.Service)(nil)).Elem(), ns, cfg.ServiceAddr, ls)
	if err != nil {
		log.Fatalf("create service skeleton: %v", err)
	}
	registrationSk, err := rmi.NewSkeleton(reflect.TypeOf((*naming_service.Registration)(nil)).Elem(), ns, cfg.RegistrationAddr, ls)
	if err != nil {
		log.Fatalf("create registration skeleton: %v", err)
	}

	if err := serviceSk.Start(); err != nil {
		log.Fatalf("start service skeleton: %v", err)
	}
	if err := registrationSk.Start(); err != nil {
		log.Fatalf("start registration skeleton: %v", err)
	}

	log.Printf("naming server listening: service=%s registration=%s", serviceSk.Address(), registrationSk.Address())

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Println("shutting down naming server...")
	serviceSk.Stop()
	registrationSk.Stop()
	log.Println("naming server stopped")
}
