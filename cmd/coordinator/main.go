// Command coordinator runs the L3 orchestrator process: the node registry,
// the per-computation state machine, and the HTTP health/status/metrics
// surface, adapted from the teacher's services/go-orchestrator/main.go
// Orchestrator into this platform's coordinator.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pangea-net/smpc-core/internal/config"
	"github.com/pangea-net/smpc-core/internal/netutil"
	"github.com/pangea-net/smpc-core/pkg/coordinator"
	"github.com/pangea-net/smpc-core/pkg/observability"
	"github.com/pangea-net/smpc-core/pkg/protocol"
	"github.com/pangea-net/smpc-core/pkg/transport"
	"github.com/pangea-net/smpc-core/pkg/zkp"
)

func main() {
	var (
		selfID        = flag.String("id", "coordinator-1", "Coordinator's own node id, used as the envelope sender field")
		listenAddr    = flag.String("listen", "/ip4/0.0.0.0/tcp/4001", "libp2p listen multiaddr")
		httpAddr      = flag.String("http", ":8080", "health/status/metrics HTTP listen address")
		zkpBucket     = flag.String("zkp-key-bucket", "", "S3/LocalStack bucket for ZKP verification keys; empty uses an in-memory key store")
		localMode     = flag.Bool("local", false, "leave IPv6 loopback (::1) addresses out of the advertised address list, for single-machine development")
	)
	flag.Parse()

	cfgManager := config.NewManager()
	cfg, err := cfgManager.Load()
	if err != nil {
		log.Fatalf("❌ [COORD] Failed to load configuration: %v", err)
	}

	obsManager := observability.NewManager(observability.LoadConfigFromEnv())
	if err := obsManager.Initialize(); err != nil {
		log.Printf("⚠️  [COORD] Observability initialization reported an error: %v", err)
	}
	defer obsManager.Shutdown()

	zkpManager := buildZKPManager(obsManager, *zkpBucket)

	host, err := transport.NewHost(transport.HostConfig{ListenAddrs: []string{*listenAddr}, LocalMode: *localMode})
	if err != nil {
		log.Fatalf("❌ [COORD] Failed to start libp2p host: %v", err)
	}
	defer host.Close()

	co := coordinator.New(*selfID, coordinatorConfigFrom(cfg), nil)
	link := transport.NewLink(host, *selfID, dispatchHandler(co, zkpManager))
	co.Transport = link
	defer link.Close()

	for _, addr := range transport.ListenAddrStrings(host) {
		log.Printf("⚙️  [COORD] listening on %s", addr)
	}

	co.RunPeriodicTasks()
	defer co.StopPeriodicTasks()

	if err := netutil.CheckPortAvailable(*httpAddr); err != nil {
		log.Printf("⚠️  [COORD] %v", err)
	}
	srv := &http.Server{Addr: *httpAddr, Handler: httpMux(co)}
	go func() {
		log.Printf("📊 [COORD] HTTP server listening on %s (/health, /status, /metrics)", *httpAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("❌ [COORD] HTTP server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("🛑 [COORD] Shutting down coordinator...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("⚠️  [COORD] Error shutting down HTTP server: %v", err)
	}
	log.Println("✅ [COORD] Coordinator shutdown complete")
}

func buildZKPManager(obs *observability.Manager, bucket string) *zkp.Manager {
	circuit := zkp.NewPoseidonCircuit()
	var keys zkp.VerificationKeyStore
	if bucket != "" && obs.AWSSession() != nil {
		s3Keys := zkp.NewS3KeyStore(obs.AWSSession(), bucket, "verification-keys")
		for kind, key := range circuit.VerificationKeys {
			if err := s3Keys.Put(kind, key); err != nil {
				log.Printf("⚠️  [ZKP] Failed to seed verification key for %s in S3: %v", kind, err)
			}
		}
		keys = s3Keys
		log.Printf("🔐 [ZKP] Verification keys backed by S3 bucket %q", bucket)
	} else {
		mem := zkp.NewInMemoryKeyStore()
		for kind, key := range circuit.VerificationKeys {
			_ = mem.Put(kind, key)
		}
		keys = mem
	}
	return zkp.NewManager(circuit, circuit, keys)
}

func coordinatorConfigFrom(cfg *config.CoordinatorConfig) coordinator.Config {
	c := coordinator.DefaultConfig()
	c.MinNodes = cfg.MinNodes
	c.MaxConcurrentComputations = cfg.MaxConcurrentComputations
	c.NodeTimeout = time.Duration(cfg.NodeTimeoutMs) * time.Millisecond
	c.ComputationTimeout = time.Duration(cfg.ComputationTimeoutMs) * time.Millisecond
	c.FaultTolerance = cfg.FaultToleranceEnabled
	return c
}

func httpMux(co *coordinator.Coordinator) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, co.Health())
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, co.Registry.All())
	})
	return mux
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("⚠️  [COORD] Failed to encode HTTP response: %v", err)
	}
}

// dispatchHandler routes an inbound envelope to the matching Coordinator
// Handle* method by its Type field, the fan-in half of the coordinator's
// command/event contract (spec §4.4).
func dispatchHandler(co *coordinator.Coordinator, zkpManager *zkp.Manager) transport.Handler {
	return func(fromPeer peer.ID, env coordinator.Envelope) {
		from := fromPeer.String()
		payload, ok := env.Payload.(map[string]interface{})
		if !ok {
			payload = map[string]interface{}{}
		}

		switch env.Type {
		case "register":
			handleRegister(co, from, payload)
		case "ack":
			co.HandleAck(stringField(payload, "computation_id"), from)
		case "share_notification":
			co.HandleShareNotification(stringField(payload, "computation_id"), from)
		case "result":
			var nr protocol.NodeIntermediate
			if err := decodeField(payload, "result", &nr); err != nil {
				log.Printf("⚠️  [COORD] Malformed result payload from %s: %v", from, err)
				return
			}
			co.HandleResult(stringField(payload, "computation_id"), from, nr)
		case "candidate_result":
			handleCandidateResult(co, zkpManager, payload)
		case "verification_result":
			verified, _ := payload["verified"].(bool)
			co.HandleVerificationResult(stringField(payload, "computation_id"), from, verified)
		case "error":
			co.HandleError(stringField(payload, "computation_id"))
		case "pong":
			load, _ := payload["load"].(float64)
			latency, _ := payload["latency_ms"].(float64)
			co.HandlePong(from, load, latency)
		default:
			log.Printf("⚠️  [COORD] Unrecognized envelope type %q from %s", env.Type, from)
		}
	}
}

func handleRegister(co *coordinator.Coordinator, from string, payload map[string]interface{}) {
	addr := stringField(payload, "transport_address")
	maxConcurrent := int(floatField(payload, "max_concurrent"))
	computePower := floatField(payload, "compute_power")
	protocols := stringSliceField(payload, "supported_protocols")

	co.Registry.Register(from, addr, coordinator.Capabilities{
		MaxConcurrent: maxConcurrent,
		ComputePower:  computePower,
	}, protocols)
	log.Printf("✅ [COORD] Registered node %s at %s", from, addr)
}

// handleCandidateResult decodes the aggregator's candidate result and its
// accompanying ZKP computation proof id, verifies the proof through the
// local zkp.Manager, and forwards the verified bool to HandleCandidateResult
// — this is the Open Question 2 wiring point noted in DESIGN.md.
func handleCandidateResult(co *coordinator.Coordinator, zkpManager *zkp.Manager, payload map[string]interface{}) {
	var result protocol.Result
	if err := decodeField(payload, "result", &result); err != nil {
		log.Printf("⚠️  [COORD] Malformed candidate_result payload: %v", err)
		return
	}
	computationID := stringField(payload, "computation_id")
	proofID := stringField(payload, "proof_id")

	proofVerified := false
	if proofID != "" {
		ok, err := zkpManager.VerifyProof(zkp.Computation, proofID)
		if err != nil {
			log.Printf("⚠️  [ZKP] Computation proof verification failed for %s: %v", computationID, err)
		}
		proofVerified = ok
	}
	co.HandleCandidateResult(computationID, result, proofVerified)
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func floatField(m map[string]interface{}, key string) float64 {
	f, _ := m[key].(float64)
	return f
}

func stringSliceField(m map[string]interface{}, key string) []string {
	raw, ok := m[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// decodeField re-marshals payload[key] (already generically decoded by
// encoding/json into map[string]interface{}/[]interface{}/float64/...) into
// dst, the same two-hop decode the teacher's JSON-RPC style handlers use
// when a single envelope carries differently-shaped payloads per message
// type.
func decodeField(payload map[string]interface{}, key string, dst interface{}) error {
	raw, ok := payload[key]
	if !ok {
		return fmt.Errorf("missing field %q", key)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}
