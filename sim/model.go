package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hpath-sim/hpath-sim/sim/dist"
	"github.com/hpath-sim/hpath-sim/sim/trace"
)

// ModelOptions controls optional outputs of a run.
type ModelOptions struct {
	// Trace, when enabled, receives every state transition (and every grant
	// and release at TraceLevelResources).
	Trace *trace.SimulationTrace
	// RecordSeries keeps the full WIP time series in the report.
	RecordSeries bool
	// Completions keeps the per-specimen completion records in the report.
	Completions bool
}

// durations holds the compiled task-duration distributions.
type durations struct {
	receiveAndSort, preBookingIn                dist.Distribution
	bookingInInternal, bookingInExternal        dist.Distribution
	investInternalEasy, investInternalHard      dist.Distribution
	investExternal                              dist.Distribution
	cutUpBMS, cutUpPool, cutUpLarge             dist.Distribution
	loadBoneStation, decalc, unloadBoneStation  dist.Distribution
	loadDecalcOven, unloadDecalcOven            dist.Distribution
	loadProcessing, unloadProcessing            dist.Distribution
	progUrgent, progSmall, progLarge, progMega  dist.Distribution
	embedding, embeddingCooldown, blockTrimming dist.Distribution

	microtomyLevels, microtomySerials, microtomyLarges, microtomyMegas dist.Distribution

	loadStainingRegular, stainingRegular, unloadStainingRegular dist.Distribution
	loadStainingMegas, stainingMegas, unloadStainingMegas       dist.Distribution
	loadCoverslip, coverslipRegular, unloadCoverslip            dist.Distribution
	coverslipMegas, labelling                                   dist.Distribution

	loadScanningRegular, scanningRegular, unloadScanningRegular dist.Distribution
	loadScanningMegas, scanningMegas, unloadScanningMegas       dist.Distribution

	qualityCheck, assignHistopathologist, writeReport dist.Distribution

	deliveryOut, deliveryReturn                 dist.Distribution
	deliveryOutScanning, deliveryReturnScanning dist.Distribution
}

func compileDurations(t *TaskDurations) (durations, error) {
	var firstErr error
	build := func(name string, s dist.Spec) dist.Distribution {
		d, err := dist.New(s)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("task_durations.%s: %w", name, err)
		}
		return d
	}
	d := durations{
		receiveAndSort:     build("receive_and_sort", t.ReceiveAndSort),
		preBookingIn:       build("pre_booking_in_investigation", t.PreBookingInInvestigation),
		bookingInInternal:  build("booking_in_internal", t.BookingInInternal),
		bookingInExternal:  build("booking_in_external", t.BookingInExternal),
		investInternalEasy: build("booking_in_investigation_internal_easy", t.BookingInInvestigationInternalEasy),
		investInternalHard: build("booking_in_investigation_internal_hard", t.BookingInInvestigationInternalHard),
		investExternal:     build("booking_in_investigation_external", t.BookingInInvestigationExternal),
		cutUpBMS:           build("cut_up_bms", t.CutUpBMS),
		cutUpPool:          build("cut_up_pool", t.CutUpPool),
		cutUpLarge:         build("cut_up_large_specimens", t.CutUpLargeSpecimens),
		loadBoneStation:    build("load_bone_station", t.LoadBoneStation),
		decalc:             build("decalc", t.Decalc),
		unloadBoneStation:  build("unload_bone_station", t.UnloadBoneStation),
		loadDecalcOven:     build("load_into_decalc_oven", t.LoadIntoDecalcOven),
		unloadDecalcOven:   build("unload_from_decalc_oven", t.UnloadFromDecalcOven),
		loadProcessing:     build("load_processing_machine", t.LoadProcessingMachine),
		unloadProcessing:   build("unload_processing_machine", t.UnloadProcessingMachine),
		progUrgent:         build("processing_urgent", t.ProcessingUrgent),
		progSmall:          build("processing_small_surgicals", t.ProcessingSmallSurgicals),
		progLarge:          build("processing_large_surgicals", t.ProcessingLargeSurgicals),
		progMega:           build("processing_megas", t.ProcessingMegas),
		embedding:          build("embedding", t.Embedding),
		embeddingCooldown:  build("embedding_cooldown", t.EmbeddingCooldown),
		blockTrimming:      build("block_trimming", t.BlockTrimming),
		microtomyLevels:    build("microtomy_levels", t.MicrotomyLevels),
		microtomySerials:   build("microtomy_serials", t.MicrotomySerials),
		microtomyLarges:    build("microtomy_larges", t.MicrotomyLarges),
		microtomyMegas:     build("microtomy_megas", t.MicrotomyMegas),

		loadStainingRegular:   build("load_staining_machine_regular", t.LoadStainingMachineRegular),
		stainingRegular:       build("staining_regular", t.StainingRegular),
		unloadStainingRegular: build("unload_staining_machine_regular", t.UnloadStainingMachineRegular),
		loadStainingMegas:     build("load_staining_machine_megas", t.LoadStainingMachineMegas),
		stainingMegas:         build("staining_megas", t.StainingMegas),
		unloadStainingMegas:   build("unload_staining_machine_megas", t.UnloadStainingMachineMegas),
		loadCoverslip:         build("load_coverslip_machine_regular", t.LoadCoverslipMachineRegular),
		coverslipRegular:      build("coverslip_regular", t.CoverslipRegular),
		unloadCoverslip:       build("unload_coverslip_machine_regular", t.UnloadCoverslipMachineRegular),
		coverslipMegas:        build("coverslip_megas", t.CoverslipMegas),
		labelling:             build("labelling", t.Labelling),

		loadScanningRegular:   build("load_scanning_machine_regular", t.LoadScanningMachineRegular),
		scanningRegular:       build("scanning_regular", t.ScanningRegular),
		unloadScanningRegular: build("unload_scanning_machine_regular", t.UnloadScanningMachineRegular),
		loadScanningMegas:     build("load_scanning_machine_megas", t.LoadScanningMachineMegas),
		scanningMegas:         build("scanning_megas", t.ScanningMegas),
		unloadScanningMegas:   build("unload_scanning_machine_megas", t.UnloadScanningMachineMegas),

		qualityCheck:           build("block_and_quality_check", t.BlockAndQualityCheck),
		assignHistopathologist: build("assign_histopathologist", t.AssignHistopathologist),
		writeReport:            build("write_report", t.WriteReport),

		deliveryOut:            build("delivery_out", t.DeliveryOut),
		deliveryReturn:         build("delivery_return", t.DeliveryReturn),
		deliveryOutScanning:    build("delivery_out_scanning", t.DeliveryOutScanning),
		deliveryReturnScanning: build("delivery_return_scanning", t.DeliveryReturnScanning),
	}
	return d, firstErr
}

// Model is one run of the laboratory pathway. It owns the clock, the event
// queue, every resource pool, the batch coordinator and the random streams;
// nothing is shared with any other Model, so replications may run in parallel.
type Model struct {
	cfg  *Config
	opts ModelOptions

	sim     *Simulator
	rng     *PartitionedRNG
	arrRNG  *rand.Rand
	pathRNG *rand.Rand

	resources []*Resource
	byName    map[string]*Resource

	bookingIn, bms, cutUpAssistant, processingStaff *Resource
	boneStation, processingMachine                  *Resource
	microtomyStaff, stainingStaff, scanningStaff    *Resource
	qcStaff, histopathologist                       *Resource
	stainingMachine, coverslipMachine               *Resource
	scanningRegular, scanningMegas                  *Resource

	batches *Coordinator
	routes  map[string]func(*Batch)
	metrics *Metrics
	trace   *trace.SimulationTrace

	dur                      durations
	blocksLarge, blocksMegas dist.IntDistribution
	slides                   map[SlideType]dist.IntDistribution

	nextSpecimen int
}

// NewModel builds a model from cfg. Distribution parameters and resource
// schedules are checked here; batch sizes are checked lazily at the first
// join of each batch key.
func NewModel(cfg *Config, key SimulationKey, opts ModelOptions) (*Model, error) {
	dur, err := compileDurations(&cfg.TaskDurations)
	if err != nil {
		return nil, err
	}
	blocksLarge, err := dist.NewInt(cfg.Globals.NumBlocksLargeSurgical)
	if err != nil {
		return nil, fmt.Errorf("globals.num_blocks_large_surgical: %w", err)
	}
	blocksMegas, err := dist.NewInt(cfg.Globals.NumBlocksMega)
	if err != nil {
		return nil, fmt.Errorf("globals.num_blocks_mega: %w", err)
	}
	slides := make(map[SlideType]dist.IntDistribution, 4)
	specs := []dist.IntSpec{
		SlideLevels:  cfg.Globals.NumSlidesLevels,
		SlideSerials: cfg.Globals.NumSlidesSerials,
		SlideLarges:  cfg.Globals.NumSlidesLarges,
		SlideMegas:   cfg.Globals.NumSlidesMegas,
	}
	for st, spec := range specs {
		d, err := dist.NewInt(spec)
		if err != nil {
			return nil, fmt.Errorf("globals.num_slides_%s: %w", SlideType(st), err)
		}
		slides[SlideType(st)] = d
	}
	if len(cfg.Arrivals.Cancer) != HoursPerWeek || len(cfg.Arrivals.NonCancer) != HoursPerWeek {
		if cfg.SimHours > 0 {
			return nil, fmt.Errorf("arrival schedules need %d hourly rates", HoursPerWeek)
		}
	}

	s := NewSimulator()
	rng := NewPartitionedRNG(key)
	m := &Model{
		cfg:         cfg,
		opts:        opts,
		sim:         s,
		rng:         rng,
		arrRNG:      rng.ForSubsystem(SubsystemArrivals),
		pathRNG:     rng.ForSubsystem(SubsystemPathway),
		byName:      make(map[string]*Resource),
		batches:     NewCoordinator(s),
		routes:      make(map[string]func(*Batch)),
		metrics:     NewMetrics(),
		trace:       opts.Trace,
		dur:         dur,
		blocksLarge: blocksLarge,
		blocksMegas: blocksMegas,
		slides:      slides,
	}
	for _, nr := range cfg.Resources.All() {
		sched, err := nr.Config.Schedule()
		if err != nil {
			return nil, fmt.Errorf("resources.%s: %w", nr.Name, err)
		}
		r := NewResource(s, nr.Name, sched)
		m.resources = append(m.resources, r)
		m.byName[nr.Name] = r
	}
	m.bookingIn = m.byName[ResBookingInStaff]
	m.bms = m.byName[ResBMS]
	m.cutUpAssistant = m.byName[ResCutUpAssistant]
	m.processingStaff = m.byName[ResProcessingRoomStaff]
	m.boneStation = m.byName[ResBoneStation]
	m.processingMachine = m.byName[ResProcessingMachine]
	m.microtomyStaff = m.byName[ResMicrotomyStaff]
	m.stainingStaff = m.byName[ResStainingStaff]
	m.scanningStaff = m.byName[ResScanningStaff]
	m.qcStaff = m.byName[ResQCStaff]
	m.histopathologist = m.byName[ResHistopathologist]
	m.stainingMachine = m.byName[ResStainingMachine]
	m.coverslipMachine = m.byName[ResCoverslipMachine]
	m.scanningRegular = m.byName[ResScanningRegular]
	m.scanningMegas = m.byName[ResScanningMegas]

	if cfg.SimHours > 0 {
		m.startArrivals(hoursToDuration(cfg.SimHours))
	}
	return m, nil
}

func hoursToDuration(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

// Sim exposes the model's scheduler.
func (m *Model) Sim() *Simulator { return m.sim }

// Resource returns the named resource, or nil.
func (m *Model) Resource(name string) *Resource { return m.byName[name] }

// Batches exposes the model's batch coordinator.
func (m *Model) Batches() *Coordinator { return m.batches }

// Metrics exposes the model's observer.
func (m *Model) Metrics() *Metrics { return m.metrics }

// Run advances the model until horizon (0 runs until nothing is left to do).
// Whenever the event queue drains before the horizon, every open batch
// other than a collation is flushed and the run continues, so partially
// filled batches never strand their members. A cancelled ctx stops the run with ErrTimeoutExceeded; on
// any error outstanding holds are abandoned and the partial report remains
// available from Report.
func (m *Model) Run(ctx context.Context, horizon time.Duration) error {
	logrus.Debugf("run starting: seed %d, horizon %v", m.rng.Key(), horizon)
	for {
		if err := m.sim.RunUntil(ctx, horizon); err != nil {
			m.teardown(err)
			return err
		}
		if m.sim.Pending() > 0 {
			break
		}
		flushed := m.batches.FlushAll()
		if len(flushed) == 0 {
			break
		}
		logrus.Debugf("[%v] idle: flushing %d open batches", m.sim.Now(), len(flushed))
		for _, b := range flushed {
			m.dispatchBatch(b)
		}
		if err := m.sim.Err(); err != nil {
			m.teardown(err)
			return err
		}
	}
	logrus.Debugf("[%v] run finished after %d events, %d specimens in flight",
		m.sim.Now(), m.sim.Executed, m.metrics.WIP(StageTotal))
	return nil
}

func (m *Model) teardown(err error) {
	abandoned := 0
	for _, r := range m.resources {
		abandoned += r.Abandon()
	}
	if errors.Is(err, ErrTimeoutExceeded) {
		logrus.Warnf("[%v] run timed out; abandoned %d resource holds", m.sim.Now(), abandoned)
		return
	}
	logrus.Debugf("[%v] run aborted; abandoned %d resource holds", m.sim.Now(), abandoned)
}

// Report summarises the run up to the current simulated time.
func (m *Model) Report() *Report {
	r := m.metrics.report(m.sim.Now(), m.opts.RecordSeries)
	if !m.opts.Completions {
		r.Completions = nil
	}
	r.Events = m.sim.Executed
	for _, res := range m.resources {
		r.Resources = append(r.Resources, res.Stats())
	}
	r.Batches = m.batches.Stats()
	return r
}

// InjectSpecimen schedules the arrival of one specimen at simulated time at,
// with a fixed class and priority instead of sampled ones.
func (m *Model) InjectSpecimen(at time.Duration, class SpecimenClass, prio Priority) (*Entity, error) {
	if at < m.sim.Now() {
		return nil, fmt.Errorf("%w: arrival at %v is before now (%v)", ErrInvalidDelay, at, m.sim.Now())
	}
	e := m.newSpecimen(class, prio, at)
	if _, err := m.sim.Schedule(at-m.sim.Now(), func() { m.arrive(e) }); err != nil {
		return nil, err
	}
	return e, nil
}

func (m *Model) newSpecimen(class SpecimenClass, prio Priority, at time.Duration) *Entity {
	m.nextSpecimen++
	return &Entity{
		ID:        fmt.Sprintf("specimen-%d", m.nextSpecimen),
		Kind:      KindSpecimen,
		Priority:  prio,
		Class:     class,
		Stage:     StageReception,
		State:     StateArrived,
		CreatedAt: at,
	}
}

// fail stops the run with e's pathway context attached to err.
func (m *Model) fail(e *Entity, resource string, err error) {
	m.sim.Fail(&RunError{Entity: e.ID, Stage: e.Stage, State: e.State, Resource: resource, Err: err})
}

// setState moves e, and every member if e is a batch, into state.
func (m *Model) setState(e *Entity, state State, detail string) {
	e.State = state
	for _, member := range e.Members {
		member.State = state
	}
	if m.trace.Enabled() {
		m.trace.RecordStage(trace.StageRecord{
			Hours:    m.sim.Now().Hours(),
			EntityID: e.ID,
			Kind:     e.Kind.String(),
			Priority: e.Priority.String(),
			Stage:    e.Stage.String(),
			State:    state.String(),
			Detail:   detail,
		})
	}
}

func (m *Model) enterStage(e *Entity, stage Stage) bool {
	e.Stage = stage
	if err := m.metrics.EnterStage(e, stage, m.sim.Now()); err != nil {
		m.fail(e, "", err)
		return false
	}
	return true
}

func (m *Model) exitStage(e *Entity, stage Stage) bool {
	if err := m.metrics.ExitStage(e, stage, m.sim.Now()); err != nil {
		m.fail(e, "", err)
		return false
	}
	return true
}

// after runs next once delay has elapsed.
func (m *Model) after(e *Entity, delay time.Duration, next func()) {
	if _, err := m.sim.Schedule(delay, next); err != nil {
		m.fail(e, "", err)
	}
}

// hold samples d and runs next once that much simulated time has elapsed.
func (m *Model) hold(e *Entity, d dist.Distribution, next func()) {
	delay, err := DurationFromSeconds(d.Sample(m.pathRNG))
	if err != nil {
		m.fail(e, "", fmt.Errorf("sampling %v: %w", d, err))
		return
	}
	m.after(e, delay, next)
}

// holdAll runs the holds in ds one after another, then next.
func (m *Model) holdAll(e *Entity, ds []dist.Distribution, next func()) {
	if len(ds) == 0 {
		next()
		return
	}
	m.hold(e, ds[0], func() { m.holdAll(e, ds[1:], next) })
}

// seize requests one unit of r on behalf of e and continues with the grant,
// immediately or once the request reaches the head of r's queue.
func (m *Model) seize(e *Entity, r *Resource, prio Priority, next func(*Grant)) {
	granted := func(g *Grant) {
		m.traceResource(e, r, "grant", g)
		next(g)
	}
	g, _, err := r.Acquire(1, prio, e.ID, granted)
	if err != nil {
		m.fail(e, r.Name, err)
		return
	}
	if g != nil {
		granted(g)
	}
}

// release returns g, reporting false if the run has failed.
func (m *Model) release(e *Entity, g *Grant) bool {
	r := g.Resource()
	if err := r.Release(g); err != nil {
		m.fail(e, r.Name, err)
		return false
	}
	m.traceResource(e, r, "release", g)
	return true
}

// work is the common seize, hold, release sequence.
func (m *Model) work(e *Entity, r *Resource, prio Priority, d dist.Distribution, next func()) {
	m.seize(e, r, prio, func(g *Grant) {
		m.hold(e, d, func() {
			if m.release(e, g) {
				next()
			}
		})
	})
}

func (m *Model) traceResource(e *Entity, r *Resource, action string, g *Grant) {
	if !m.trace.ResourcesEnabled() {
		return
	}
	rec := trace.ResourceRecord{
		Hours:    m.sim.Now().Hours(),
		EntityID: e.ID,
		Resource: r.Name,
		Action:   action,
		InUse:    r.InUse(),
		Capacity: r.CapacityAt(m.sim.Now()),
	}
	if action == "grant" {
		rec.WaitMins = (g.GrantedAt - g.EnqueuedAt).Minutes()
	}
	m.trace.RecordResource(rec)
}

// joinBatch parks e in the batch for key. next runs with the batch once it
// closes, by size here or later, or by the idle flush in Run.
// The route of a key is fixed by the join that opens its batch.
func (m *Model) joinBatch(e *Entity, key string, policy BatchPolicy, next func(*Batch)) {
	b, err := m.batches.Join(e, key, policy)
	if err != nil {
		m.fail(e, "", err)
		return
	}
	if _, ok := m.routes[key]; !ok {
		m.routes[key] = next
	}
	if b != nil {
		m.dispatchBatch(b)
	}
}

func (m *Model) dispatchBatch(b *Batch) {
	next, ok := m.routes[b.Key]
	if !ok {
		m.fail(b.Entity, "", fmt.Errorf("no route for batch key %q", b.Key))
		return
	}
	delete(m.routes, b.Key)
	detail := fmt.Sprintf("%s closed with %d members", b.Key, len(b.Members))
	if b.Flushed {
		detail += " (flushed)"
	}
	m.setState(b.Entity, b.State, detail)
	next(b)
}

// unbatch releases b and returns its members, or nil if the run failed.
func (m *Model) unbatch(b *Batch) []*Entity {
	members, err := m.batches.Release(b)
	if err != nil {
		m.fail(b.Entity, "", err)
		return nil
	}
	return members
}
