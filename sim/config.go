package sim

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hpath-sim/hpath-sim/sim/dist"
)

// HoursPerWeek is the length of an arrival schedule.
const HoursPerWeek = 168

// Resource names, as used in configuration, reports and metric labels.
const (
	ResBookingInStaff      = "booking_in_staff"
	ResBMS                 = "bms"
	ResCutUpAssistant      = "cut_up_assistant"
	ResProcessingRoomStaff = "processing_room_staff"
	ResBoneStation         = "bone_station"
	ResProcessingMachine   = "processing_machine"
	ResMicrotomyStaff      = "microtomy_staff"
	ResStainingStaff       = "staining_staff"
	ResScanningStaff       = "scanning_staff"
	ResQCStaff             = "qc_staff"
	ResHistopathologist    = "histopathologist"
	ResStainingMachine     = "staining_machine"
	ResCoverslipMachine    = "coverslip_machine"
	ResScanningRegular     = "scanning_machine_regular"
	ResScanningMegas       = "scanning_machine_megas"
)

// Config is the complete input of a run: arrival schedules, resource
// schedules, task durations, batch sizes and branch probabilities.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type Config struct {
	Arrivals      ArrivalSchedules `yaml:"arrivals"`
	Resources     ResourcesConfig  `yaml:"resources"`
	TaskDurations TaskDurations    `yaml:"task_durations"`
	BatchSizes    BatchSizes       `yaml:"batch_sizes"`
	Globals       Globals          `yaml:"globals"`
	SimHours      float64          `yaml:"sim_hours"`
	NumReps       int              `yaml:"num_reps"`
}

// ArrivalSchedules holds the expected arrivals per hour of the week, Monday
// 00:00 first, for each specimen class.
type ArrivalSchedules struct {
	Cancer    []float64 `yaml:"cancer,flow"`
	NonCancer []float64 `yaml:"non_cancer,flow"`
}

// ResourceConfig describes one resource. Exactly one of Unlimited, Capacity
// or the DayFlags/Allocation pair must be given.
type ResourceConfig struct {
	Type       string `yaml:"type"` // staff or machine
	Unlimited  bool   `yaml:"unlimited,omitempty"`
	Capacity   *int   `yaml:"capacity,omitempty"`
	DayFlags   []bool `yaml:"day_flags,omitempty,flow"`
	Allocation []int  `yaml:"allocation,omitempty,flow"`
}

// Schedule converts the configuration into a capacity schedule.
func (rc ResourceConfig) Schedule() (CapacitySchedule, error) {
	switch {
	case rc.Unlimited:
		if rc.Capacity != nil || len(rc.DayFlags) > 0 || len(rc.Allocation) > 0 {
			return CapacitySchedule{}, fmt.Errorf("unlimited resource must not also set a capacity or schedule")
		}
		return UnlimitedSchedule(), nil
	case rc.Capacity != nil:
		if len(rc.DayFlags) > 0 || len(rc.Allocation) > 0 {
			return CapacitySchedule{}, fmt.Errorf("capacity and schedule are mutually exclusive")
		}
		if *rc.Capacity < 0 {
			return CapacitySchedule{}, fmt.Errorf("capacity must be non-negative, got %d", *rc.Capacity)
		}
		return ConstantSchedule(*rc.Capacity), nil
	default:
		return NewCapacitySchedule(rc.DayFlags, rc.Allocation)
	}
}

// ResourcesConfig lists every resource of the pathway.
type ResourcesConfig struct {
	BookingInStaff      ResourceConfig `yaml:"booking_in_staff"`
	BMS                 ResourceConfig `yaml:"bms"`
	CutUpAssistant      ResourceConfig `yaml:"cut_up_assistant"`
	ProcessingRoomStaff ResourceConfig `yaml:"processing_room_staff"`
	BoneStation         ResourceConfig `yaml:"bone_station"`
	ProcessingMachine   ResourceConfig `yaml:"processing_machine"`
	MicrotomyStaff      ResourceConfig `yaml:"microtomy_staff"`
	StainingStaff       ResourceConfig `yaml:"staining_staff"`
	ScanningStaff       ResourceConfig `yaml:"scanning_staff"`
	QCStaff             ResourceConfig `yaml:"qc_staff"`
	Histopathologist    ResourceConfig `yaml:"histopathologist"`
	StainingMachine     ResourceConfig `yaml:"staining_machine"`
	CoverslipMachine    ResourceConfig `yaml:"coverslip_machine"`
	ScanningRegular     ResourceConfig `yaml:"scanning_machine_regular"`
	ScanningMegas       ResourceConfig `yaml:"scanning_machine_megas"`
}

// NamedResource pairs a resource name with its configuration.
type NamedResource struct {
	Name   string
	Config ResourceConfig
}

// All returns the resources in a fixed order.
func (r ResourcesConfig) All() []NamedResource {
	return []NamedResource{
		{ResBookingInStaff, r.BookingInStaff},
		{ResBMS, r.BMS},
		{ResCutUpAssistant, r.CutUpAssistant},
		{ResProcessingRoomStaff, r.ProcessingRoomStaff},
		{ResBoneStation, r.BoneStation},
		{ResProcessingMachine, r.ProcessingMachine},
		{ResMicrotomyStaff, r.MicrotomyStaff},
		{ResStainingStaff, r.StainingStaff},
		{ResScanningStaff, r.ScanningStaff},
		{ResQCStaff, r.QCStaff},
		{ResHistopathologist, r.Histopathologist},
		{ResStainingMachine, r.StainingMachine},
		{ResCoverslipMachine, r.CoverslipMachine},
		{ResScanningRegular, r.ScanningRegular},
		{ResScanningMegas, r.ScanningMegas},
	}
}

// TaskDurations parameterizes every timed task of the pathway.
type TaskDurations struct {
	ReceiveAndSort                     dist.Spec `yaml:"receive_and_sort"`
	PreBookingInInvestigation          dist.Spec `yaml:"pre_booking_in_investigation"`
	BookingInInternal                  dist.Spec `yaml:"booking_in_internal"`
	BookingInExternal                  dist.Spec `yaml:"booking_in_external"`
	BookingInInvestigationInternalEasy dist.Spec `yaml:"booking_in_investigation_internal_easy"`
	BookingInInvestigationInternalHard dist.Spec `yaml:"booking_in_investigation_internal_hard"`
	BookingInInvestigationExternal     dist.Spec `yaml:"booking_in_investigation_external"`
	CutUpBMS                           dist.Spec `yaml:"cut_up_bms"`
	CutUpPool                          dist.Spec `yaml:"cut_up_pool"`
	CutUpLargeSpecimens                dist.Spec `yaml:"cut_up_large_specimens"`
	LoadBoneStation                    dist.Spec `yaml:"load_bone_station"`
	Decalc                             dist.Spec `yaml:"decalc"`
	UnloadBoneStation                  dist.Spec `yaml:"unload_bone_station"`
	LoadIntoDecalcOven                 dist.Spec `yaml:"load_into_decalc_oven"`
	UnloadFromDecalcOven               dist.Spec `yaml:"unload_from_decalc_oven"`
	LoadProcessingMachine              dist.Spec `yaml:"load_processing_machine"`
	UnloadProcessingMachine            dist.Spec `yaml:"unload_processing_machine"`
	ProcessingUrgent                   dist.Spec `yaml:"processing_urgent"`
	ProcessingSmallSurgicals           dist.Spec `yaml:"processing_small_surgicals"`
	ProcessingLargeSurgicals           dist.Spec `yaml:"processing_large_surgicals"`
	ProcessingMegas                    dist.Spec `yaml:"processing_megas"`
	Embedding                          dist.Spec `yaml:"embedding"`
	EmbeddingCooldown                  dist.Spec `yaml:"embedding_cooldown"`
	BlockTrimming                      dist.Spec `yaml:"block_trimming"`
	MicrotomySerials                   dist.Spec `yaml:"microtomy_serials"`
	MicrotomyLevels                    dist.Spec `yaml:"microtomy_levels"`
	MicrotomyLarges                    dist.Spec `yaml:"microtomy_larges"`
	MicrotomyMegas                     dist.Spec `yaml:"microtomy_megas"`
	LoadStainingMachineRegular         dist.Spec `yaml:"load_staining_machine_regular"`
	LoadStainingMachineMegas           dist.Spec `yaml:"load_staining_machine_megas"`
	StainingRegular                    dist.Spec `yaml:"staining_regular"`
	StainingMegas                      dist.Spec `yaml:"staining_megas"`
	UnloadStainingMachineRegular       dist.Spec `yaml:"unload_staining_machine_regular"`
	UnloadStainingMachineMegas         dist.Spec `yaml:"unload_staining_machine_megas"`
	LoadCoverslipMachineRegular        dist.Spec `yaml:"load_coverslip_machine_regular"`
	CoverslipRegular                   dist.Spec `yaml:"coverslip_regular"`
	CoverslipMegas                     dist.Spec `yaml:"coverslip_megas"`
	UnloadCoverslipMachineRegular      dist.Spec `yaml:"unload_coverslip_machine_regular"`
	Labelling                          dist.Spec `yaml:"labelling"`
	LoadScanningMachineRegular         dist.Spec `yaml:"load_scanning_machine_regular"`
	LoadScanningMachineMegas           dist.Spec `yaml:"load_scanning_machine_megas"`
	ScanningRegular                    dist.Spec `yaml:"scanning_regular"`
	ScanningMegas                      dist.Spec `yaml:"scanning_megas"`
	UnloadScanningMachineRegular       dist.Spec `yaml:"unload_scanning_machine_regular"`
	UnloadScanningMachineMegas         dist.Spec `yaml:"unload_scanning_machine_megas"`
	BlockAndQualityCheck               dist.Spec `yaml:"block_and_quality_check"`
	AssignHistopathologist             dist.Spec `yaml:"assign_histopathologist"`
	WriteReport                        dist.Spec `yaml:"write_report"`
	DeliveryOut                        dist.Spec `yaml:"delivery_out"`
	DeliveryReturn                     dist.Spec `yaml:"delivery_return"`
	// Runs to and from the scanning room are longer than the others.
	DeliveryOutScanning    dist.Spec `yaml:"delivery_out_scanning"`
	DeliveryReturnScanning dist.Spec `yaml:"delivery_return_scanning"`
}

type namedSpec struct {
	name string
	spec *dist.Spec
}

func (t *TaskDurations) fields() []namedSpec {
	return []namedSpec{
		{"receive_and_sort", &t.ReceiveAndSort},
		{"pre_booking_in_investigation", &t.PreBookingInInvestigation},
		{"booking_in_internal", &t.BookingInInternal},
		{"booking_in_external", &t.BookingInExternal},
		{"booking_in_investigation_internal_easy", &t.BookingInInvestigationInternalEasy},
		{"booking_in_investigation_internal_hard", &t.BookingInInvestigationInternalHard},
		{"booking_in_investigation_external", &t.BookingInInvestigationExternal},
		{"cut_up_bms", &t.CutUpBMS},
		{"cut_up_pool", &t.CutUpPool},
		{"cut_up_large_specimens", &t.CutUpLargeSpecimens},
		{"load_bone_station", &t.LoadBoneStation},
		{"decalc", &t.Decalc},
		{"unload_bone_station", &t.UnloadBoneStation},
		{"load_into_decalc_oven", &t.LoadIntoDecalcOven},
		{"unload_from_decalc_oven", &t.UnloadFromDecalcOven},
		{"load_processing_machine", &t.LoadProcessingMachine},
		{"unload_processing_machine", &t.UnloadProcessingMachine},
		{"processing_urgent", &t.ProcessingUrgent},
		{"processing_small_surgicals", &t.ProcessingSmallSurgicals},
		{"processing_large_surgicals", &t.ProcessingLargeSurgicals},
		{"processing_megas", &t.ProcessingMegas},
		{"embedding", &t.Embedding},
		{"embedding_cooldown", &t.EmbeddingCooldown},
		{"block_trimming", &t.BlockTrimming},
		{"microtomy_serials", &t.MicrotomySerials},
		{"microtomy_levels", &t.MicrotomyLevels},
		{"microtomy_larges", &t.MicrotomyLarges},
		{"microtomy_megas", &t.MicrotomyMegas},
		{"load_staining_machine_regular", &t.LoadStainingMachineRegular},
		{"load_staining_machine_megas", &t.LoadStainingMachineMegas},
		{"staining_regular", &t.StainingRegular},
		{"staining_megas", &t.StainingMegas},
		{"unload_staining_machine_regular", &t.UnloadStainingMachineRegular},
		{"unload_staining_machine_megas", &t.UnloadStainingMachineMegas},
		{"load_coverslip_machine_regular", &t.LoadCoverslipMachineRegular},
		{"coverslip_regular", &t.CoverslipRegular},
		{"coverslip_megas", &t.CoverslipMegas},
		{"unload_coverslip_machine_regular", &t.UnloadCoverslipMachineRegular},
		{"labelling", &t.Labelling},
		{"load_scanning_machine_regular", &t.LoadScanningMachineRegular},
		{"load_scanning_machine_megas", &t.LoadScanningMachineMegas},
		{"scanning_regular", &t.ScanningRegular},
		{"scanning_megas", &t.ScanningMegas},
		{"unload_scanning_machine_regular", &t.UnloadScanningMachineRegular},
		{"unload_scanning_machine_megas", &t.UnloadScanningMachineMegas},
		{"block_and_quality_check", &t.BlockAndQualityCheck},
		{"assign_histopathologist", &t.AssignHistopathologist},
		{"write_report", &t.WriteReport},
		{"delivery_out", &t.DeliveryOut},
		{"delivery_return", &t.DeliveryReturn},
		{"delivery_out_scanning", &t.DeliveryOutScanning},
		{"delivery_return_scanning", &t.DeliveryReturnScanning},
	}
}

// SetAll assigns spec to every task. Scenario tests start from SetAll(Minutes(0)).
func (t *TaskDurations) SetAll(spec dist.Spec) {
	for _, f := range t.fields() {
		*f.spec = spec
	}
}

// BatchSizes holds the size of every batching point.
type BatchSizes struct {
	DeliverReceptionToCutUp      int `yaml:"deliver_reception_to_cut_up"`
	DeliverCutUpToProcessing     int `yaml:"deliver_cut_up_to_processing"`
	DeliverProcessingToMicrotomy int `yaml:"deliver_processing_to_microtomy"`
	BoneStation                  int `yaml:"bone_station"`
	ProcessingRegular            int `yaml:"processing_regular"`
	ProcessingMegas              int `yaml:"processing_megas"`
	DeliverMicrotomyToStaining   int `yaml:"deliver_microtomy_to_staining"`
	DeliverStainingToLabelling   int `yaml:"deliver_staining_to_labelling"`
	DeliverLabellingToScanning   int `yaml:"deliver_labelling_to_scanning"`
	DeliverScanningToQC          int `yaml:"deliver_scanning_to_qc"`
	StainingRegular              int `yaml:"staining_regular"`
	StainingMegas                int `yaml:"staining_megas"`
	ScanningRegular              int `yaml:"digital_scanning_regular"`
	ScanningMegas                int `yaml:"digital_scanning_megas"`
}

// Globals holds branch probabilities and block-count distributions.
type Globals struct {
	ProbInternal          float64 `yaml:"prob_internal"`
	ProbUrgentCancer      float64 `yaml:"prob_urgent_cancer"`
	ProbUrgentNonCancer   float64 `yaml:"prob_urgent_non_cancer"`
	ProbPriorityCancer    float64 `yaml:"prob_priority_cancer"`
	ProbPriorityNonCancer float64 `yaml:"prob_priority_non_cancer"`
	ProbPrebook           float64 `yaml:"prob_prebook"`
	ProbInvestEasy        float64 `yaml:"prob_invest_easy"`
	ProbInvestHard        float64 `yaml:"prob_invest_hard"`
	ProbInvestExternal    float64 `yaml:"prob_invest_external"`
	ProbBMSCutup          float64 `yaml:"prob_bms_cutup"`
	ProbBMSCutupUrgent    float64 `yaml:"prob_bms_cutup_urgent"`
	ProbPoolCutup         float64 `yaml:"prob_pool_cutup"`
	ProbPoolCutupUrgent   float64 `yaml:"prob_pool_cutup_urgent"`
	ProbMegaBlocks        float64 `yaml:"prob_mega_blocks"`
	ProbDecalcBone        float64 `yaml:"prob_decalc_bone"`
	ProbDecalcOven        float64 `yaml:"prob_decalc_oven"`
	// ProbMicrotomyLevels is the chance a small surgical block is cut as
	// levels rather than serials.
	ProbMicrotomyLevels float64 `yaml:"prob_microtomy_levels"`

	NumBlocksLargeSurgical dist.IntSpec `yaml:"num_blocks_large_surgical"`
	NumBlocksMega          dist.IntSpec `yaml:"num_blocks_mega"`
	NumSlidesLarges        dist.IntSpec `yaml:"num_slides_larges"`
	NumSlidesLevels        dist.IntSpec `yaml:"num_slides_levels"`
	NumSlidesMegas         dist.IntSpec `yaml:"num_slides_megas"`
	NumSlidesSerials       dist.IntSpec `yaml:"num_slides_serials"`
}

// LoadConfig reads and strictly parses a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML with strict field checking: unknown keys are errors.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Validate checks lengths, ranges and distribution parameters. It does not
// run a model; a config that validates may still fail at run time only
// through contract violations.
func (c *Config) Validate() error {
	if err := validateRates("arrivals.cancer", c.Arrivals.Cancer); err != nil {
		return err
	}
	if err := validateRates("arrivals.non_cancer", c.Arrivals.NonCancer); err != nil {
		return err
	}
	for _, r := range c.Resources.All() {
		if r.Config.Type != "staff" && r.Config.Type != "machine" {
			return fmt.Errorf("resources.%s: type must be staff or machine, got %q", r.Name, r.Config.Type)
		}
		if _, err := r.Config.Schedule(); err != nil {
			return fmt.Errorf("resources.%s: %w", r.Name, err)
		}
	}
	for _, f := range c.TaskDurations.fields() {
		if err := f.spec.Validate(); err != nil {
			return fmt.Errorf("task_durations.%s: %w", f.name, err)
		}
	}
	sizes := map[string]int{
		"deliver_reception_to_cut_up":     c.BatchSizes.DeliverReceptionToCutUp,
		"deliver_cut_up_to_processing":    c.BatchSizes.DeliverCutUpToProcessing,
		"deliver_processing_to_microtomy": c.BatchSizes.DeliverProcessingToMicrotomy,
		"bone_station":                    c.BatchSizes.BoneStation,
		"processing_regular":              c.BatchSizes.ProcessingRegular,
		"processing_megas":                c.BatchSizes.ProcessingMegas,
		"deliver_microtomy_to_staining":   c.BatchSizes.DeliverMicrotomyToStaining,
		"deliver_staining_to_labelling":   c.BatchSizes.DeliverStainingToLabelling,
		"deliver_labelling_to_scanning":   c.BatchSizes.DeliverLabellingToScanning,
		"deliver_scanning_to_qc":          c.BatchSizes.DeliverScanningToQC,
		"staining_regular":                c.BatchSizes.StainingRegular,
		"staining_megas":                  c.BatchSizes.StainingMegas,
		"digital_scanning_regular":        c.BatchSizes.ScanningRegular,
		"digital_scanning_megas":          c.BatchSizes.ScanningMegas,
	}
	for name, n := range sizes {
		if n <= 0 {
			return fmt.Errorf("batch_sizes.%s must be positive, got %d", name, n)
		}
	}
	if err := c.Globals.validate(); err != nil {
		return err
	}
	if c.SimHours < 0 || math.IsNaN(c.SimHours) || math.IsInf(c.SimHours, 0) {
		return fmt.Errorf("sim_hours must be finite and non-negative, got %g", c.SimHours)
	}
	if c.NumReps < 0 {
		return fmt.Errorf("num_reps must be non-negative, got %d", c.NumReps)
	}
	return nil
}

func validateRates(name string, rates []float64) error {
	if len(rates) != HoursPerWeek {
		return fmt.Errorf("%s needs %d hourly rates, got %d", name, HoursPerWeek, len(rates))
	}
	for i, r := range rates {
		if r < 0 || math.IsNaN(r) || math.IsInf(r, 0) {
			return fmt.Errorf("%s[%d] must be finite and non-negative, got %g", name, i, r)
		}
	}
	return nil
}

func (g Globals) validate() error {
	probs := []struct {
		name string
		v    float64
	}{
		{"prob_internal", g.ProbInternal},
		{"prob_urgent_cancer", g.ProbUrgentCancer},
		{"prob_urgent_non_cancer", g.ProbUrgentNonCancer},
		{"prob_priority_cancer", g.ProbPriorityCancer},
		{"prob_priority_non_cancer", g.ProbPriorityNonCancer},
		{"prob_prebook", g.ProbPrebook},
		{"prob_invest_easy", g.ProbInvestEasy},
		{"prob_invest_hard", g.ProbInvestHard},
		{"prob_invest_external", g.ProbInvestExternal},
		{"prob_bms_cutup", g.ProbBMSCutup},
		{"prob_bms_cutup_urgent", g.ProbBMSCutupUrgent},
		{"prob_pool_cutup", g.ProbPoolCutup},
		{"prob_pool_cutup_urgent", g.ProbPoolCutupUrgent},
		{"prob_mega_blocks", g.ProbMegaBlocks},
		{"prob_decalc_bone", g.ProbDecalcBone},
		{"prob_decalc_oven", g.ProbDecalcOven},
		{"prob_microtomy_levels", g.ProbMicrotomyLevels},
	}
	for _, p := range probs {
		if p.v < 0 || p.v > 1 || math.IsNaN(p.v) {
			return fmt.Errorf("globals.%s must be in [0, 1], got %g", p.name, p.v)
		}
	}
	sums := []struct {
		name string
		v    float64
	}{
		{"prob_urgent_cancer + prob_priority_cancer", g.ProbUrgentCancer + g.ProbPriorityCancer},
		{"prob_urgent_non_cancer + prob_priority_non_cancer", g.ProbUrgentNonCancer + g.ProbPriorityNonCancer},
		{"prob_invest_easy + prob_invest_hard", g.ProbInvestEasy + g.ProbInvestHard},
		{"prob_bms_cutup + prob_pool_cutup", g.ProbBMSCutup + g.ProbPoolCutup},
		{"prob_bms_cutup_urgent + prob_pool_cutup_urgent", g.ProbBMSCutupUrgent + g.ProbPoolCutupUrgent},
		{"prob_decalc_bone + prob_decalc_oven", g.ProbDecalcBone + g.ProbDecalcOven},
	}
	for _, s := range sums {
		if s.v > 1+1e-9 {
			return fmt.Errorf("globals: %s must not exceed 1, got %g", s.name, s.v)
		}
	}
	counts := []struct {
		name, unit string
		spec       dist.IntSpec
	}{
		{"num_blocks_large_surgical", "block", g.NumBlocksLargeSurgical},
		{"num_blocks_mega", "block", g.NumBlocksMega},
		{"num_slides_larges", "slide", g.NumSlidesLarges},
		{"num_slides_levels", "slide", g.NumSlidesLevels},
		{"num_slides_megas", "slide", g.NumSlidesMegas},
		{"num_slides_serials", "slide", g.NumSlidesSerials},
	}
	for _, c := range counts {
		if err := c.spec.Validate(); err != nil {
			return fmt.Errorf("globals.%s: %w", c.name, err)
		}
		if c.spec.Min() < 1 {
			return fmt.Errorf("globals.%s must always produce at least one %s", c.name, c.unit)
		}
	}
	return nil
}

func pert(low, mode, high float64, unit string) dist.Spec {
	return dist.Spec{Type: "PERT", Low: low, Mode: mode, High: high, TimeUnit: unit}
}

func weekdaySchedule(n, fromSlot, toSlot int) ResourceConfig {
	rc := ResourceConfig{Type: "staff", DayFlags: []bool{true, true, true, true, true, false, false}}
	rc.Allocation = make([]int, SlotsPerDay)
	for i := fromSlot; i < toSlot; i++ {
		rc.Allocation[i] = n
	}
	return rc
}

func capacity(n int) *int { return &n }

// DefaultConfig returns a complete, valid configuration for a mid-sized
// laboratory staffed 08:00 to 18:00 on weekdays.
func DefaultConfig() *Config {
	cfg := &Config{
		Arrivals: ArrivalSchedules{
			Cancer:    make([]float64, HoursPerWeek),
			NonCancer: make([]float64, HoursPerWeek),
		},
		Resources: ResourcesConfig{
			BookingInStaff:      weekdaySchedule(3, 16, 36),
			BMS:                 weekdaySchedule(4, 16, 36),
			CutUpAssistant:      weekdaySchedule(2, 16, 36),
			ProcessingRoomStaff: weekdaySchedule(3, 14, 38),
			BoneStation:         ResourceConfig{Type: "machine", Capacity: capacity(2)},
			ProcessingMachine:   ResourceConfig{Type: "machine", Capacity: capacity(6)},
			MicrotomyStaff:      weekdaySchedule(6, 16, 36),
			StainingStaff:       weekdaySchedule(2, 14, 38),
			ScanningStaff:       weekdaySchedule(2, 14, 38),
			QCStaff:             weekdaySchedule(2, 16, 36),
			Histopathologist:    weekdaySchedule(8, 16, 36),
			StainingMachine:     ResourceConfig{Type: "machine", Capacity: capacity(2)},
			CoverslipMachine:    ResourceConfig{Type: "machine", Capacity: capacity(2)},
			ScanningRegular:     ResourceConfig{Type: "machine", Capacity: capacity(4)},
			ScanningMegas:       ResourceConfig{Type: "machine", Capacity: capacity(1)},
		},
		TaskDurations: TaskDurations{
			ReceiveAndSort:                     dist.Minutes(1),
			PreBookingInInvestigation:          pert(2, 5, 10, "m"),
			BookingInInternal:                  pert(2, 3, 5, "m"),
			BookingInExternal:                  pert(4, 5, 10, "m"),
			BookingInInvestigationInternalEasy: pert(1, 2, 5, "m"),
			BookingInInvestigationInternalHard: pert(10, 15, 30, "m"),
			BookingInInvestigationExternal:     pert(2, 5, 10, "m"),
			CutUpBMS:                           pert(5, 10, 15, "m"),
			CutUpPool:                          pert(10, 15, 25, "m"),
			CutUpLargeSpecimens:                pert(20, 30, 60, "m"),
			LoadBoneStation:                    dist.Minutes(5),
			Decalc:                             dist.Spec{Type: "Triangular", Low: 10, Mode: 16, High: 24, TimeUnit: "h"},
			UnloadBoneStation:                  dist.Minutes(5),
			LoadIntoDecalcOven:                 dist.Minutes(5),
			UnloadFromDecalcOven:               dist.Minutes(5),
			LoadProcessingMachine:              dist.Minutes(5),
			UnloadProcessingMachine:            dist.Minutes(5),
			ProcessingUrgent:                   dist.Spec{Type: "Constant", Mode: 2, TimeUnit: "h"},
			ProcessingSmallSurgicals:           dist.Spec{Type: "Constant", Mode: 5.5, TimeUnit: "h"},
			ProcessingLargeSurgicals:           dist.Spec{Type: "Constant", Mode: 12, TimeUnit: "h"},
			ProcessingMegas:                    dist.Spec{Type: "Constant", Mode: 24, TimeUnit: "h"},
			Embedding:                          pert(1, 2, 4, "m"),
			EmbeddingCooldown:                  dist.Minutes(30),
			BlockTrimming:                      pert(1, 2, 3, "m"),
			MicrotomySerials:                   pert(10, 15, 20, "m"),
			MicrotomyLevels:                    pert(5, 8, 12, "m"),
			MicrotomyLarges:                    pert(8, 12, 20, "m"),
			MicrotomyMegas:                     pert(15, 20, 30, "m"),
			LoadStainingMachineRegular:         dist.Minutes(5),
			LoadStainingMachineMegas:           dist.Minutes(5),
			StainingRegular:                    dist.Minutes(40),
			StainingMegas:                      dist.Minutes(60),
			UnloadStainingMachineRegular:       dist.Minutes(5),
			UnloadStainingMachineMegas:         dist.Minutes(5),
			LoadCoverslipMachineRegular:        dist.Minutes(5),
			CoverslipRegular:                   dist.Minutes(20),
			CoverslipMegas:                     pert(1, 2, 3, "m"),
			UnloadCoverslipMachineRegular:      dist.Minutes(5),
			Labelling:                          pert(20, 30, 60, "s"),
			LoadScanningMachineRegular:         dist.Minutes(5),
			LoadScanningMachineMegas:           dist.Minutes(5),
			ScanningRegular:                    dist.Minutes(60),
			ScanningMegas:                      dist.Minutes(120),
			UnloadScanningMachineRegular:       dist.Minutes(5),
			UnloadScanningMachineMegas:         dist.Minutes(5),
			BlockAndQualityCheck:               pert(5, 10, 20, "m"),
			AssignHistopathologist:             pert(1, 2, 5, "m"),
			WriteReport:                        pert(15, 30, 60, "m"),
			DeliveryOut:                        dist.Minutes(2),
			DeliveryReturn:                     dist.Minutes(2),
			DeliveryOutScanning:                dist.Minutes(5),
			DeliveryReturnScanning:             dist.Minutes(5),
		},
		BatchSizes: BatchSizes{
			DeliverReceptionToCutUp:      10,
			DeliverCutUpToProcessing:     10,
			DeliverProcessingToMicrotomy: 10,
			BoneStation:                  10,
			ProcessingRegular:            40,
			ProcessingMegas:              10,
			DeliverMicrotomyToStaining:   10,
			DeliverStainingToLabelling:   10,
			DeliverLabellingToScanning:   10,
			DeliverScanningToQC:          10,
			StainingRegular:              50,
			StainingMegas:                20,
			ScanningRegular:              50,
			ScanningMegas:                10,
		},
		Globals: Globals{
			ProbInternal:           0.6,
			ProbUrgentCancer:       0.05,
			ProbUrgentNonCancer:    0.02,
			ProbPriorityCancer:     0.2,
			ProbPriorityNonCancer:  0.1,
			ProbPrebook:            0.05,
			ProbInvestEasy:         0.1,
			ProbInvestHard:         0.02,
			ProbInvestExternal:     0.05,
			ProbBMSCutup:           0.6,
			ProbBMSCutupUrgent:     0.7,
			ProbPoolCutup:          0.2,
			ProbPoolCutupUrgent:    0.2,
			ProbMegaBlocks:         0.1,
			ProbDecalcBone:         0.02,
			ProbDecalcOven:         0.03,
			ProbMicrotomyLevels:    0.7,
			NumBlocksLargeSurgical: dist.IntSpec{Type: "int_pert", Low: 2, Mode: 4, High: 10},
			NumBlocksMega:          dist.IntSpec{Type: "int_pert", Low: 1, Mode: 2, High: 4},
			NumSlidesLarges:        dist.IntSpec{Type: "int_pert", Low: 1, Mode: 2, High: 4},
			NumSlidesLevels:        dist.IntSpec{Type: "int_pert", Low: 2, Mode: 3, High: 4},
			NumSlidesMegas:         dist.IntSpec{Type: "int_pert", Low: 1, Mode: 1, High: 2},
			NumSlidesSerials:       dist.IntSpec{Type: "int_pert", Low: 3, Mode: 5, High: 10},
		},
		SimHours: 4 * HoursPerWeek,
		NumReps:  1,
	}
	// Specimens arrive 08:00-18:00 on weekdays.
	for day := 0; day < 5; day++ {
		for h := 8; h < 18; h++ {
			cfg.Arrivals.Cancer[day*24+h] = 1.0
			cfg.Arrivals.NonCancer[day*24+h] = 3.0
		}
	}
	return cfg
}
