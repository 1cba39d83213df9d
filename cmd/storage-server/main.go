package main

import (
	"log"
	"os"
	"os/signal"
	"reflect"
	"syscall"

	"github.com/meridianfs/namefs/internal/config"
	"github.com/meridianfs/namefs/internal/fs_path"
	"github.com/meridianfs/namefs/internal/log_service"
	"github.com/meridianfs/namefs/internal/log_service/zaplog"
	"github.com/meridianfs/namefs/internal/rmi"
	"github.com/meridianfs/namefs/internal/storage_iface"
	"github.com/meridianfs/namefs/internal/storage_node"
)

func main() {
	cfgPath := "./storage-server.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.LoadStorageConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ls, err := zaplog.New(cfg.LogDir, "storage-server", cfg.LogLevel)
	if err != nil {
		log.Fatalf("create log service: %v", err)
	}
	defer ls.Sync()

	node, err := storage_node.New(cfg.Root, ls)
	if err != nil {
		log.Fatalf("create storage node: %v", err)
	}

	storageSk, err := rmi.NewSkeleton(reflect.TypeOf((*storage_iface.Storage)(nil)).Elem(), node, cfg.ClientAddr, ls)
	if err != nil {
		log.Fatalf("create storage skeleton: %v", err)
	}
	commandSk, err := rmi.NewSkeleton(reflect.TypeOf((*storage_iface.Command)(nil)).Elem(), node, cfg.CommandAddr, ls)
	if err != nil {
		log.Fatalf("create command skeleton: %v", err)
	}

	if err := storageSk.Start(); err != nil {
		log.Fatalf("start storage skeleton: %v", err)
	}
	if err := commandSk.Start(); err != nil {
		log.Fatalf("start command skeleton: %v", err)
	}

	var storageHandle, commandHandle rmi.StubHandle
	if cfg.Hostname != "" {
		storageHandle, err = rmi.StubFromSkeletonWithHost("Storage", storageSk, cfg.Hostname)
		if err == nil {
			commandHandle, err = rmi.StubFromSkeletonWithHost("Command", commandSk, cfg.Hostname)
		}
	} else {
		storageHandle, err = rmi.StubFromSkeleton("Storage", storageSk)
		if err == nil {
			commandHandle, err = rmi.StubFromSkeleton("Command", commandSk)
		}
	}
	if err != nil {
		log.Fatalf("create stub handles: %v", err)
	}

	files, err := node.ListLocal()
	if err != nil {
		log.Fatalf("list local files: %v", err)
	}

	registration := rmi.StubFromAddress("Registration", cfg.NamingRegAddr)
	duplicates, err := rmi.Call[[]fs_path.Path](
		registration, "Register",
		storage_iface.NewStorageStub(storageHandle),
		storage_iface.NewCommandStub(commandHandle),
		files,
	)
	if err != nil {
		log.Fatalf("register with naming server: %v", err)
	}

	for _, dup := range duplicates {
		if _, err := node.Delete(dup); err != nil {
			ls.Warn(log_service.LogEvent{Message: "storage-server: failed to prune duplicate", Metadata: map[string]any{"path": dup.String(), "error": err.Error()}})
		}
	}

	log.Printf("storage server registered: storage=%s command=%s duplicates=%d", storageHandle, commandHandle, len(duplicates))

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Println("shutting down storage server...")
	storageSk.Stop()
	commandSk.Stop()
	log.Println("storage server stopped")
}
