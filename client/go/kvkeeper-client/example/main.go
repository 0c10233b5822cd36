// client/go/kvkeeper-client/example/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	kvkeeperclient "github.com/avivl/kvkeeper/client/go/kvkeeper-client"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	serverAddr := "localhost:5050"
	if len(os.Args) > 1 {
		serverAddr = os.Args[1]
	}

	// Create a context that will be canceled on SIGINT or SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		fmt.Println("\n📣 Received shutdown signal. Cleaning up...")
		cancel()
	}()

	client, err := kvkeeperclient.NewKVKeeperClient(serverAddr)
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	fmt.Printf("🔄 Waiting for %s to report SERVING\n", serverAddr)

	waitCtx, waitCancel := context.WithTimeout(ctx, 30*time.Second)
	err = client.WaitUntilServing(waitCtx, time.Second)
	waitCancel()
	if err != nil {
		log.Fatalf("Store never became ready: %v", err)
	}
	fmt.Println("✅ Store is ready")

	err = client.StartWatch(ctx, 5*time.Second, func(st healthpb.HealthCheckResponse_ServingStatus) {
		if st == healthpb.HealthCheckResponse_SERVING {
			fmt.Println("✅ Store is back")
			return
		}
		fmt.Printf("❌ Store status changed to %s\n", st)
	})
	if err != nil {
		log.Fatalf("Failed to start watch: %v", err)
	}

	<-ctx.Done()
	fmt.Println("🛑 Shutting down...")
}
