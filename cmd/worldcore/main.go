// Command worldcore boots the world simulation core: config, database,
// data catalogs, the ECS/world state, the NPC AI/threat engine, combat,
// spawn/death/respawn, the JSON-envelope session transport, and the
// phased tick loop that drives all of it. Grounded on the teacher's
// cmd/l1jgo/main.go bootstrap sequence, narrowed to this domain's
// single-rate tick (core/system.Runner has no TickPhase split, and this
// transport has no binary-packet input-lag concern to chase).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/worldcore/server/internal/adminhttp"
	"github.com/worldcore/server/internal/bgwork"
	"github.com/worldcore/server/internal/combat"
	"github.com/worldcore/server/internal/config"
	"github.com/worldcore/server/internal/core/ecs"
	"github.com/worldcore/server/internal/core/event"
	coresys "github.com/worldcore/server/internal/core/system"
	"github.com/worldcore/server/internal/data"
	"github.com/worldcore/server/internal/death"
	"github.com/worldcore/server/internal/handler"
	netx "github.com/worldcore/server/internal/net"
	"github.com/worldcore/server/internal/npc"
	"github.com/worldcore/server/internal/persist"
	"github.com/worldcore/server/internal/regionflag"
	"github.com/worldcore/server/internal/respawn"
	"github.com/worldcore/server/internal/scripting"
	"github.com/worldcore/server/internal/simclock"
	"github.com/worldcore/server/internal/spawn"
	"github.com/worldcore/server/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	config.LoadDotEnv(".env")

	cfgPath := "config/server.toml"
	if p := os.Getenv("WORLDCORE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name, cfg.Server.ShardID)

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer bootCancel()

	printSection("database")
	db, err := persist.NewDB(bootCtx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	printOK("postgres connected")

	if err := persist.RunMigrations(bootCtx, db.Pool); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	printOK("schema migrated")
	fmt.Println()

	charRepo := persist.NewCharacterRepo(db)
	corpseRepo := persist.NewCorpseRepo(db)
	ledgerRepo := persist.NewRewardLedgerRepo(db)

	printSection("crash recovery")
	pending, err := ledgerRepo.RecoverPending(bootCtx)
	if err != nil {
		return fmt.Errorf("reward ledger recovery: %w", err)
	}
	printStat("pending reward grants", len(pending))

	pendingCorpses, err := corpseRepo.LoadPending(bootCtx)
	if err != nil {
		return fmt.Errorf("corpse schedule recovery: %w", err)
	}
	printStat("pending corpse schedules", len(pendingCorpses))
	fmt.Println()

	printSection("world data")
	npcProtos, err := data.LoadNpcProtoTable(cfg.World.NpcProtoPath)
	if err != nil {
		return fmt.Errorf("load npc prototypes: %w", err)
	}
	printStat("npc prototypes", npcProtos.Count())

	spawnPoints, err := data.LoadSpawnPointTable(cfg.World.SpawnPointPath)
	if err != nil {
		return fmt.Errorf("load spawn points: %w", err)
	}
	printStat("spawn points", spawnPoints.Count())

	regionCatalog, err := data.LoadRegionCatalog(cfg.World.RegionCatalogPath)
	if err != nil {
		return fmt.Errorf("load region catalog: %w", err)
	}
	printStat("region profiles", len(regionCatalog.Profiles))

	scriptEngine, err := scripting.NewEngine(cfg.World.ScriptsDir, log)
	if err != nil {
		return fmt.Errorf("scripting engine: %w", err)
	}
	defer scriptEngine.Close()
	printOK("lua scripts loaded")
	fmt.Println()

	printSection("world state")
	ecsWorld := ecs.NewWorld()
	entities := world.NewEntityRegistry(ecsWorld)
	sessions := world.NewSessionTable()
	rooms := world.NewRoomTable(entities, sessions)
	bus := event.NewBus()
	clock := simclock.Wall{}

	regionFlags := regionflag.NewCache(catalogRegionSource{catalog: regionCatalog}, clock, log)

	pool := bgwork.New(4, 256, log)

	combatPipeline := &combat.Pipeline{
		Registry: entities,
		Resolver: scriptEngine,
		Clock:    clock,
		Bus:      bus,
		Log:      log,
	}

	npcManager := npc.NewManager(ecsWorld, npc.ManagerConfig{
		Registry:       entities,
		Protos:         npcProtos,
		RegionCatalog:  regionCatalog,
		RegionFlags:    regionFlags,
		Clock:          clock,
		Log:            log,
		Bus:            bus,
		Rooms:          rooms,
		Combat:         combatPipeline,
		ResolveBrain:   func(*data.NpcProto) npc.Brain { return luaBrain{engine: scriptEngine} },
		FleeThreshold:  0.25,
		HealThreatMult: cfg.Rates.HealThreatMult,
	})
	combatPipeline.Threat = npcManager

	spawnCtl := spawn.NewController(entities, npcManager, npcProtos, spawnPoints, log)

	rewards := &rewardSink{entities: entities, pool: pool, ledger: ledgerRepo, charRepo: charRepo, log: log}
	deathPipeline := death.NewPipeline(entities, npcManager, npcProtos, rewards, spawnCtl, bus, clock, log)
	deathPipeline.CorpseLifetime = cfg.World.CorpseLifetime
	deathPipeline.DefaultRespawnDelay = cfg.World.DefaultRespawnDelay
	deathPipeline.ExpRate = cfg.Rates.ExpRate

	event.Subscribe(bus, func(e event.NpcDied) {
		deathPipeline.HandleNpcDeath(e.EntityID, e.KillerID)
	})
	event.Subscribe(bus, func(e event.CorpseDespawned) {
		if err := corpseRepo.Delete(context.Background(), int64(e.EntityID)); err != nil {
			log.Warn("corpse schedule cleanup failed", zap.Error(err))
		}
	})

	respawnSvc := &respawn.Service{
		Registry:    entities,
		SpawnPoints: spawnPoints,
		Bus:         bus,
		Log:         log,
	}

	printOK("ecs, combat, npc, spawn, death, respawn wired")
	fmt.Println()

	printSection("network")
	netServer, err := netx.NewServer(cfg.Network.BindAddress, cfg.Network.InQueueSize, cfg.Network.OutQueueSize, log)
	if err != nil {
		return fmt.Errorf("network listen: %w", err)
	}
	go netServer.AcceptLoop()
	printOK(fmt.Sprintf("listening on %s", netServer.Addr().String()))

	handlerRegistry := handler.NewDefaultRegistry(log)
	handlerCtx := &handler.Context{
		Entities: entities,
		Rooms:    rooms,
		Sessions: sessions,
		Combat:   combatPipeline,
		Respawn:  respawnSvc,
		Log:      log,
	}

	var adminSrv *adminhttp.Server
	if cfg.Admin.Enabled {
		adminSrv = adminhttp.NewServer(cfg.Admin.BindAddress, log)
		go func() {
			if err := adminSrv.Start(); err != nil {
				log.Error("admin http server stopped", zap.Error(err))
			}
		}()
		printOK(fmt.Sprintf("admin surface on %s", cfg.Admin.BindAddress))
	}
	fmt.Println()

	printSection("spawn population")
	regions := distinctRegions(spawnPoints)
	spawnedTotal := 0
	for _, rk := range regions {
		spawnedTotal += len(spawnCtl.ReconcileRegion(rk.shardID, rk.regionID))
	}
	printStat("npcs spawned", spawnedTotal)
	fmt.Println()

	runner := coresys.NewRunner()
	inputSys := newInputSystem(netServer, sessions, rooms, handlerRegistry, handlerCtx, cfg.Network.MaxPacketsPerTick)
	runner.Register(inputSys)
	runner.Register(eventDispatchSystem{bus: bus})
	runner.Register(npcManager)
	runner.Register(&spawnReconcileSystem{ctl: spawnCtl, regions: regions})
	runner.Register(deathPipeline)
	runner.Register(ecsCleanupSystem{world: ecsWorld})
	if adminSrv != nil {
		runner.Register(&adminReportSystem{admin: adminSrv, entities: entities, input: inputSys})
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Network.TickRate)
	defer ticker.Stop()

	printSection("ready")
	printReady(fmt.Sprintf("tick rate %s", cfg.Network.TickRate))
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Network.TickRate)
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			netServer.Shutdown()
			if adminSrv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				_ = adminSrv.Shutdown(shutdownCtx)
				cancel()
			}
			pool.Shutdown()
			log.Info("shutdown complete")
			return nil
		}
	}
}

// catalogRegionSource answers regionflag.Cache refreshes from the
// already-loaded region catalog rather than a real RegionFlagService
// network call — this core owns the catalog it loaded at boot, so there is
// no remote service to reach for the stand-in used here.
type catalogRegionSource struct {
	catalog *data.RegionCatalog
}

func (s catalogRegionSource) FetchRegionFlags(_ context.Context, regionID string) (data.RegionFlags, error) {
	if f, ok := s.catalog.Flags[regionID]; ok {
		return f, nil
	}
	return data.RegionFlags{RegionID: regionID, AggroMode: data.AggroNormal}, nil
}

// luaBrain adapts the Lua scripting engine's DecideNpc to npc.Brain, falling
// silent (idle) on a script error rather than propagating it. Because the
// error never leaves this adapter, the manager's ScriptedBrain wrapper does
// not reach its Go fallback for script failures; the NPC idles that tick.
type luaBrain struct {
	engine *scripting.Engine
}

func (b luaBrain) Decide(p npc.Perception) npc.Decision {
	d, err := b.engine.DecideNpc(p)
	if err != nil {
		return npc.Decision{Kind: npc.DecisionIdle}
	}
	return d
}

// rewardSink is death.Pipeline's RewardSink: it writes a recoverable ledger
// entry before handing the grant to the character repo, entirely off the
// tick via the background worker pool. Loot delivery into an inventory is
// ItemService's concern (external collaborator per spec.md's Non-goals);
// this core's responsibility ends at a durable, auditable ledger write.
type rewardSink struct {
	entities *world.EntityRegistry
	pool     *bgwork.Pool
	ledger   *persist.RewardLedgerRepo
	charRepo *persist.CharacterRepo
	log      *zap.Logger
}

func (s *rewardSink) GrantXP(playerEntityID ecs.EntityID, amount int32) {
	if amount <= 0 {
		return
	}
	e, ok := s.entities.Get(playerEntityID)
	if !ok {
		return
	}
	name := e.Name
	s.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		id, err := s.ledger.WriteXP(ctx, int64(playerEntityID), amount)
		if err != nil {
			s.log.Error("write xp ledger entry", zap.Error(err))
			return
		}
		if err := s.charRepo.GrantXP(ctx, name, amount); err != nil {
			s.log.Error("grant xp", zap.Error(err))
			return
		}
		if err := s.ledger.MarkProcessed(ctx, id); err != nil {
			s.log.Error("mark xp ledger entry processed", zap.Error(err))
		}
	})
}

func (s *rewardSink) GrantLoot(playerEntityID ecs.EntityID, protoID int32, loot []data.LootEntry) {
	if len(loot) == 0 {
		return
	}
	s.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		id, err := s.ledger.WriteLoot(ctx, int64(playerEntityID), protoID, loot)
		if err != nil {
			s.log.Error("write loot ledger entry", zap.Error(err))
			return
		}
		if err := s.ledger.MarkProcessed(ctx, id); err != nil {
			s.log.Error("mark loot ledger entry processed", zap.Error(err))
		}
	})
}

// regionKey is a (shard, region) pair worth reconciling spawn points for.
type regionKey struct {
	shardID, regionID string
}

func distinctRegions(spawnPoints *data.SpawnPointTable) []regionKey {
	seen := make(map[regionKey]struct{})
	var out []regionKey
	for _, sp := range spawnPoints.All() {
		k := regionKey{shardID: sp.ShardID, regionID: sp.RegionID}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// eventDispatchSystem runs first in PhasePreUpdate: swap the double-buffer
// and deliver last tick's events to their subscribers (death pipeline's
// NpcDied handler, corpse-schedule cleanup).
type eventDispatchSystem struct {
	bus *event.Bus
}

func (s eventDispatchSystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }
func (s eventDispatchSystem) Update(time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}

// ecsCleanupSystem flushes entities EntityRegistry.RemoveEntity queued via
// ecs.World.MarkForDestruction this tick, clearing every registered
// component store (RuntimeState, ThreatTable, ...) and recycling the
// entity's generational index.
type ecsCleanupSystem struct {
	world *ecs.World
}

func (s ecsCleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }
func (s ecsCleanupSystem) Update(time.Duration) {
	s.world.FlushDestroyQueue()
}

// spawnReconcileSystem re-populates shared NPC spawn points that have gone
// empty (a corpse finally despawned, freeing its spawn point) every tick.
type spawnReconcileSystem struct {
	ctl     *spawn.Controller
	regions []regionKey
}

func (s *spawnReconcileSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }
func (s *spawnReconcileSystem) Update(time.Duration) {
	for _, rk := range s.regions {
		s.ctl.ReconcileRegion(rk.shardID, rk.regionID)
	}
}

// adminReportSystem refreshes the ops-only /metrics/tick snapshot every
// tick, in the output phase (before cleanup runs).
type adminReportSystem struct {
	admin    *adminhttp.Server
	entities *world.EntityRegistry
	input    *inputSystem
}

func (s *adminReportSystem) Phase() coresys.Phase { return coresys.PhaseOutput }
func (s *adminReportSystem) Update(dt time.Duration) {
	count := 0
	s.entities.Each(func(*world.Entity) { count++ })
	s.admin.ReportTick(dt, count, s.input.sessionCount())
}

// inputSystem drains new/dead sessions and each live session's decoded
// envelope queue into the handler registry. It is the sole owner of session
// bookkeeping's lifecycle (spec.md §2's single-tick-goroutine rule) — the
// accept loop and session read/write loops only ever hand it channels.
type inputSystem struct {
	netServer  *netx.Server
	sessions   *world.SessionTable
	rooms      *world.RoomTable
	registry   *handler.Registry
	ctx        *handler.Context
	maxPerTick int

	active map[uint64]*netx.Session
}

func newInputSystem(netServer *netx.Server, sessions *world.SessionTable, rooms *world.RoomTable, registry *handler.Registry, ctx *handler.Context, maxPerTick int) *inputSystem {
	return &inputSystem{
		netServer:  netServer,
		sessions:   sessions,
		rooms:      rooms,
		registry:   registry,
		ctx:        ctx,
		maxPerTick: maxPerTick,
		active:     make(map[uint64]*netx.Session),
	}
}

func (s *inputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *inputSystem) sessionCount() int { return len(s.active) }

func (s *inputSystem) Update(time.Duration) {
	s.acceptNew()
	s.reapClosed()
	s.dispatchPending()
}

func (s *inputSystem) acceptNew() {
	for {
		select {
		case ns := <-s.netServer.NewSessions():
			sess := &world.Session{ID: ns.ID, Socket: ns, LastSeenAt: time.Now()}
			s.sessions.Add(sess)
			s.active[ns.ID] = ns
			s.rooms.Join(sess, "lobby")
		default:
			return
		}
	}
}

func (s *inputSystem) reapClosed() {
	for id, ns := range s.active {
		if ns.IsClosed() {
			s.netServer.NotifyDead(id)
		}
	}
	for {
		select {
		case id := <-s.netServer.DeadSessions():
			if sess, ok := s.sessions.Get(id); ok {
				s.rooms.Leave(sess)
			}
			s.sessions.Remove(id)
			delete(s.active, id)
		default:
			return
		}
	}
}

func (s *inputSystem) dispatchPending() {
	for id, ns := range s.active {
		sess, ok := s.sessions.Get(id)
		if !ok {
			continue
		}
		for i := 0; i < s.maxPerTick; i++ {
			select {
			case env := <-ns.InQueue:
				s.registry.Dispatch(s.ctx, sess, env.Op, env.Payload, env.Nonce)
			default:
				i = s.maxPerTick
			}
		}
	}
}

func printBanner(serverName, shardID string) {
	fmt.Println()
	fmt.Println("\033[36;1m  +-------------------------------------------+\033[0m")
	fmt.Println("\033[36;1m  |\033[0m              worldcore  v0.1.0             \033[36;1m|\033[0m")
	fmt.Println("\033[36;1m  |\033[0m        world simulation core · Go           \033[36;1m|\033[0m")
	fmt.Println("\033[36;1m  +-------------------------------------------+\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s \033[90m(shard: %s)\033[0m\n\n", serverName, shardID)
}

func printSection(title string) {
	displayWidth := 0
	for _, r := range title {
		if r > 0x7F {
			displayWidth += 2
		} else {
			displayWidth++
		}
	}
	lineLen := 46 - displayWidth - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m-- %s %s\033[0m\n", title, strings.Repeat("-", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	displayWidth := 0
	for _, r := range label {
		if r > 0x7F {
			displayWidth += 2
		} else {
			displayWidth++
		}
	}
	dotsLen := 42 - displayWidth - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat(".", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m+\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m>\033[0m %s\n", msg)
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
