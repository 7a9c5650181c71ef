// Command p2pnode is a thin demo entrypoint: it loads or generates a
// node identity, builds a routing table and protocol driver wired to
// an in-memory transport, bootstraps against any seeds given on the
// command line, and prints periodic routing-table traces. It mirrors
// the shape of the teacher's own main.go (flag-parsed options, plain
// fmt.Printf status lines, log.Fatal on unrecoverable setup errors)
// rather than the spec's file-sharing/PoS wiring, which is out of
// scope here.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kutluhann/p2pcore/config"
	"github.com/kutluhann/p2pcore/driver"
	"github.com/kutluhann/p2pcore/identity"
	"github.com/kutluhann/p2pcore/internal/chainstub"
	"github.com/kutluhann/p2pcore/internal/netsim"
	"github.com/kutluhann/p2pcore/internal/syncstub"
	"github.com/kutluhann/p2pcore/kademlia"
	"github.com/kutluhann/p2pcore/peer"
)

func main() {
	cfg := config.Load()

	passphrase := flag.String("passphrase", cfg.KeystorePass, "passphrase protecting the node's private key file")
	keyPath := flag.String("keyfile", cfg.PrivateKeyPath, "path to the encrypted private key file")
	host := flag.String("host", cfg.ListenHost, "advertised host for this node")
	port := flag.Int("port", cfg.ListenPort, "advertised port for this node")
	traceInterval := flag.Duration("trace-interval", 10*time.Second, "how often to print the routing table")
	gossipInterval := flag.Duration("gossip-interval", 20*time.Second, "how often to broadcast peer-set deltas")
	flag.Parse()

	if *passphrase == "" {
		log.Fatal("FATAL: -passphrase is required")
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		log.Fatalf("FATAL: could not create data directory %q: %v", cfg.DataDir, err)
	}

	priv, err := loadOrCreateIdentity(*keyPath, *passphrase)
	if err != nil {
		log.Fatalf("FATAL: identity setup failed: %v", err)
	}

	local := priv.Public().Address()
	fmt.Printf("node identity: %s\n", local)

	table, err := kademlia.New(local, cfg.TableSize, cfg.BucketSize, rand.New(rand.NewSource(time.Now().UnixNano())))
	if err != nil {
		log.Fatalf("FATAL: routing table setup failed: %v", err)
	}

	sb := netsim.New()
	socket, peerFinder := sb.Register(local, table)

	d := driver.New(priv, table, socket, peerFinder, chainstub.New(), chainstub.NewTxPool(), syncstub.New(), driver.Params{
		Alpha:              cfg.Alpha,
		K:                  cfg.K,
		PingSeedTimeout:    cfg.PingSeedTimeout,
		FindPeerTimeout:    cfg.FindPeerTimeout,
		LookupRoundTimeout: cfg.LookupRoundTimeout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go d.RunProbeLoop(ctx)
	go d.RunGossipLoop(ctx, *gossipInterval)
	go runMaintenanceLoops(ctx, d, cfg.RefreshMaxAge)
	go runRebuildOnSIGUSR1(ctx, d)

	seeds := seedsFromArgs(flag.Args())
	if len(seeds) > 0 {
		fmt.Printf("bootstrapping against %d seed(s)...\n", len(seeds))
		if err := d.BootstrapAsync(ctx, seeds); err != nil {
			log.Printf("bootstrap: %v", err)
		}
	} else {
		fmt.Println("no seeds given, starting as a genesis node")
	}

	fmt.Printf("listening as %s:%d\n", *host, *port)

	ticker := time.NewTicker(*traceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("shutting down")
			return
		case <-ticker.C:
			fmt.Print(d.Trace())
		}
	}
}

// runMaintenanceLoops periodically refreshes stale buckets and checks
// each bucket's replacement cache, mirroring the background upkeep a
// long-running node performs outside of request/response traffic.
func runMaintenanceLoops(ctx context.Context, d *driver.Driver, refreshMaxAge time.Duration) {
	refreshTicker := time.NewTicker(refreshMaxAge / 4)
	defer refreshTicker.Stop()
	cacheTicker := time.NewTicker(30 * time.Second)
	defer cacheTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-refreshTicker.C:
			if err := d.RefreshTableAsync(ctx, refreshMaxAge); err != nil {
				log.Printf("refresh: %v", err)
			}
		case <-cacheTicker.C:
			if err := d.CheckReplacementCacheAsync(ctx); err != nil {
				log.Printf("replacement cache check: %v", err)
			}
		}
	}
}

// runRebuildOnSIGUSR1 lets an operator force a full table rebuild
// (self-lookup plus one lookup per empty bucket) without restarting
// the process, e.g. after a long network partition.
func runRebuildOnSIGUSR1(ctx context.Context, d *driver.Driver) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGUSR1)
	defer signal.Stop(sig)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
			fmt.Println("received SIGUSR1, rebuilding connection")
			if err := d.RebuildConnectionAsync(ctx); err != nil {
				log.Printf("rebuild: %v", err)
			}
		}
	}
}

func loadOrCreateIdentity(path, passphrase string) (identity.PrivateKey, error) {
	if _, err := os.Stat(path); err == nil {
		fmt.Println("loading existing identity from", path)
		return identity.LoadEncrypted(path, passphrase)
	}

	fmt.Println("generating new identity at", path)
	priv, err := identity.Generate()
	if err != nil {
		return identity.PrivateKey{}, err
	}
	if err := identity.SaveEncrypted(path, priv, passphrase, 0, 0); err != nil {
		return identity.PrivateKey{}, err
	}
	return priv, nil
}

// seedsFromArgs parses bare "host:port:hexaddress" seed strings from
// the command line. Malformed seeds are logged and skipped.
func seedsFromArgs(args []string) []peer.BoundPeer {
	var out []peer.BoundPeer
	for _, arg := range args {
		p, err := parseSeed(arg)
		if err != nil {
			log.Printf("skipping malformed seed %q: %v", arg, err)
			continue
		}
		out = append(out, p)
	}
	return out
}
