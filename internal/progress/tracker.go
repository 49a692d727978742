package progress

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/p-n-ai/pai-progress/internal/auth"
	"github.com/p-n-ai/pai-progress/internal/curriculum"
	"github.com/p-n-ai/pai-progress/internal/executor"
)

const (
	defaultPassScore    = 70
	defaultWriteWorkers = 4
	defaultQueueSize    = 256
	defaultWriteTimeout = 10 * time.Second
)

var (
	ErrUnknownCourse   = errors.New("unknown course")
	ErrUnknownSection  = errors.New("unknown section")
	ErrUnknownTopic    = errors.New("unknown topic")
	ErrNoProgressOwner = errors.New("no user or device to record progress for")
	ErrNotSignedIn     = errors.New("sign-in required")
	ErrNoDevice        = errors.New("device id is required")
	ErrNoExercise      = errors.New("topic has no coding exercise")
	ErrNoRunner        = errors.New("code execution is not configured")
	ErrInvalidScore    = errors.New("quiz score must be between 0 and 100")
	ErrTrackerClosed   = errors.New("tracker is closed")
)

// Catalog is the read side of the course catalog.
type Catalog interface {
	Course(id string) (curriculum.Course, bool)
	Courses() []curriculum.Course
}

// Publisher pushes fresh views to live subscribers of an owner.
type Publisher interface {
	Publish(owner string, payload any)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, any) {}

// TrackerConfig holds dependencies for the tracker.
type TrackerConfig struct {
	Catalog      Catalog
	Remote       RemoteStore
	Local        LocalCache
	Events       EventLogger
	Publisher    Publisher
	Runner       executor.Runner
	Quota        executor.Quota
	PassScore    float64       // quiz pass mark when a topic sets none (default 70)
	WriteWorkers int           // remote write workers (default 4)
	WriteTimeout time.Duration // per remote write (default 10s)
}

// TopicView is one topic as the presentation layer sees it.
type TopicView struct {
	Key     string                 `json:"key"`
	Ordinal int                    `json:"ordinal"`
	Title   string                 `json:"title"`
	State   UnlockState            `json:"state"`
	Record  *TopicCompletionRecord `json:"record,omitempty"`
}

// SectionView is the reconciled progress and unlock state of one section.
type SectionView struct {
	CourseID  string             `json:"courseId"`
	SectionID string             `json:"sectionId"`
	Name      string             `json:"name"`
	Progress  ReconciledProgress `json:"progress"`
	Topics    []TopicView        `json:"topics"`
}

// CourseView is the reconciled progress of a whole course.
type CourseView struct {
	CourseID string             `json:"courseId"`
	Name     string             `json:"name"`
	Progress ReconciledProgress `json:"progress"`
	Sections []SectionView      `json:"sections"`
}

// ProfileSummary holds every course and the unweighted mean of their percents.
type ProfileSummary struct {
	Courses []CourseView `json:"courses"`
	Percent int          `json:"percent"`
}

// Completion carries the optional details of a completion action.
type Completion struct {
	QuizScore       *float64
	CodingCompleted bool
}

// QuizResult is the outcome of a quiz submission.
type QuizResult struct {
	Passed    bool         `json:"passed"`
	Score     float64      `json:"score"`
	PassScore float64      `json:"passScore"`
	Section   *SectionView `json:"section,omitempty"`
}

// CodeResult is the outcome of a coding submission.
type CodeResult struct {
	Passed  bool            `json:"passed"`
	Run     executor.Result `json:"run"`
	Section *SectionView    `json:"section,omitempty"`
}

type opKind int

const (
	opMerge opKind = iota
	opDelete
	opBarrier
)

type remoteOp struct {
	kind      opKind
	userID    string
	courseID  string
	sectionID string
	record    SectionRecord
	done      chan error
}

// Tracker reads and writes learner progress. Reads reconcile the remote and
// local stores; remote writes go through per-user ordered worker queues.
type Tracker struct {
	catalog      Catalog
	remote       RemoteStore
	local        LocalCache
	events       EventLogger
	publisher    Publisher
	runner       executor.Runner
	quota        executor.Quota
	passScore    float64
	writeTimeout time.Duration
	now          func() time.Time

	queues  []chan remoteOp
	workers sync.WaitGroup
	closeMu sync.RWMutex
	closed  bool
}

// NewTracker creates a tracker and starts its remote write workers.
func NewTracker(cfg TrackerConfig) (*Tracker, error) {
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	remote := cfg.Remote
	if remote == nil {
		remote = NewMemoryRemoteStore()
	}
	local := cfg.Local
	if local == nil {
		local = NewMemoryLocalCache()
	}
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = nopPublisher{}
	}
	passScore := cfg.PassScore
	if passScore == 0 {
		passScore = defaultPassScore
	}
	workers := cfg.WriteWorkers
	if workers <= 0 {
		workers = defaultWriteWorkers
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = defaultWriteTimeout
	}

	t := &Tracker{
		catalog:      cfg.Catalog,
		remote:       remote,
		local:        local,
		events:       events,
		publisher:    publisher,
		runner:       cfg.Runner,
		quota:        cfg.Quota,
		passScore:    passScore,
		writeTimeout: writeTimeout,
		now:          time.Now,
		queues:       make([]chan remoteOp, workers),
	}
	for i := range t.queues {
		t.queues[i] = make(chan remoteOp, defaultQueueSize)
		t.workers.Add(1)
		go t.worker(t.queues[i])
	}
	return t, nil
}

// Courses returns the catalog's courses.
func (t *Tracker) Courses() []curriculum.Course {
	return t.catalog.Courses()
}

// SectionProgress reconciles one section. The remote read must finish before
// anything is returned so a signed-in learner never sees a transient zero.
func (t *Tracker) SectionProgress(ctx context.Context, id auth.Identity, deviceID, courseID, sectionID string) (SectionView, error) {
	_, section, err := t.lookupSection(courseID, sectionID)
	if err != nil {
		return SectionView{}, err
	}

	snap, err := t.snapshot(ctx, id, deviceID, sectionOnly(courseID, section))
	if err != nil {
		return SectionView{}, err
	}
	return buildSectionView(courseID, section, snap.remote.Section(courseID, sectionID), snap.local[LocalCacheKey(courseID, sectionID)]), nil
}

// CourseProgress reconciles every section of a course.
func (t *Tracker) CourseProgress(ctx context.Context, id auth.Identity, deviceID, courseID string) (CourseView, error) {
	course, ok := t.catalog.Course(courseID)
	if !ok {
		return CourseView{}, fmt.Errorf("%w: %s", ErrUnknownCourse, courseID)
	}

	snap, err := t.snapshot(ctx, id, deviceID, course)
	if err != nil {
		return CourseView{}, err
	}
	return buildCourseView(course, snap), nil
}

// ProfileSummary reconciles every course in the catalog.
func (t *Tracker) ProfileSummary(ctx context.Context, id auth.Identity, deviceID string) (ProfileSummary, error) {
	courses := t.catalog.Courses()

	snap, err := t.snapshot(ctx, id, deviceID, courses...)
	if err != nil {
		return ProfileSummary{}, err
	}

	summary := ProfileSummary{Courses: make([]CourseView, 0, len(courses))}
	percents := make([]int, 0, len(courses))
	for _, c := range courses {
		view := buildCourseView(c, snap)
		summary.Courses = append(summary.Courses, view)
		percents = append(percents, view.Progress.Percent)
	}
	summary.Percent = AggregatePercent(percents)
	return summary, nil
}

// CompleteTopic marks a topic complete. The local cache is updated first;
// the remote write is queued and its failure is only logged.
func (t *Tracker) CompleteTopic(ctx context.Context, id auth.Identity, deviceID, courseID, sectionID, topicKey string, c Completion) (SectionView, error) {
	_, section, topic, err := t.lookupTopic(courseID, sectionID, topicKey)
	if err != nil {
		return SectionView{}, err
	}
	owner := id.Owner(deviceID)
	if owner == "" {
		return SectionView{}, ErrNoProgressOwner
	}

	var remote SectionRecord
	if !id.IsAnonymous() {
		doc, err := t.remote.Load(ctx, id.UserID)
		if err != nil {
			slog.Warn("remote progress unavailable, writing without merge",
				"user_id", id.UserID,
				"error", err,
			)
		} else {
			remote = doc.Section(courseID, sectionID)
		}
	}

	now := t.now().UTC()
	rec := TopicCompletionRecord{Completed: true, CompletedAt: &now, QuizScore: c.QuizScore}
	if c.CodingCompleted {
		done := true
		rec.CodingCompleted = &done
	}
	if prev, ok := remote[topic.TopicKey()]; ok {
		rec = mergeRecord(prev, rec)
	}

	var local []byte
	if deviceID != "" {
		local, err = t.addLocal(ctx, deviceID, courseID, section, topic.Ordinal)
		if err != nil {
			if id.IsAnonymous() {
				return SectionView{}, err
			}
			slog.Warn("local progress write failed",
				"device_id", deviceID,
				"course_id", courseID,
				"section_id", sectionID,
				"error", err,
			)
		}
	}

	overlay := SectionRecord{topic.TopicKey(): rec}
	if !id.IsAnonymous() {
		if err := t.enqueue(ctx, remoteOp{
			kind:      opMerge,
			userID:    id.UserID,
			courseID:  courseID,
			sectionID: sectionID,
			record:    overlay,
		}); err != nil {
			slog.Error("failed to queue remote progress write",
				"user_id", id.UserID,
				"course_id", courseID,
				"section_id", sectionID,
				"error", err,
			)
		}
	}

	merged := make(SectionRecord, len(remote)+1)
	for k, r := range remote {
		merged[k] = r
	}
	merged[topic.TopicKey()] = rec

	t.logEvent(Event{
		UserID:    id.UserID,
		DeviceID:  deviceID,
		EventType: EventTopicCompleted,
		CourseID:  courseID,
		SectionID: sectionID,
		TopicKey:  topic.TopicKey(),
		Data:      completionData(rec),
	})

	view := buildSectionView(courseID, section, merged, local)
	t.publisher.Publish(owner, view)
	return view, nil
}

// ResetSection clears the section in both stores. Clearing only one side
// would let the other resurrect the completions, so both are always
// attempted and any failures are joined.
func (t *Tracker) ResetSection(ctx context.Context, id auth.Identity, deviceID, courseID, sectionID string) (SectionView, error) {
	if _, _, err := t.lookupSection(courseID, sectionID); err != nil {
		return SectionView{}, err
	}
	owner := id.Owner(deviceID)
	if owner == "" {
		return SectionView{}, ErrNoProgressOwner
	}

	var errs []error
	if !id.IsAnonymous() {
		if err := t.enqueueWait(ctx, remoteOp{
			kind:      opDelete,
			userID:    id.UserID,
			courseID:  courseID,
			sectionID: sectionID,
		}); err != nil {
			errs = append(errs, fmt.Errorf("clear remote progress: %w", err))
		}
	}
	if deviceID != "" {
		if err := t.local.Clear(ctx, deviceID, courseID, sectionID); err != nil {
			errs = append(errs, fmt.Errorf("clear local progress: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return SectionView{}, err
	}

	t.logEvent(Event{
		UserID:    id.UserID,
		DeviceID:  deviceID,
		EventType: EventSectionReset,
		CourseID:  courseID,
		SectionID: sectionID,
	})

	view, err := t.SectionProgress(ctx, id, deviceID, courseID, sectionID)
	if err != nil {
		return SectionView{}, err
	}
	t.publisher.Publish(owner, view)
	return view, nil
}

// MigrateLocal copies a device's cached completions for a course into the
// signed-in user's remote document. Existing remote entries are kept.
func (t *Tracker) MigrateLocal(ctx context.Context, id auth.Identity, deviceID, courseID string) (CourseView, error) {
	if id.IsAnonymous() {
		return CourseView{}, ErrNotSignedIn
	}
	if deviceID == "" {
		return CourseView{}, ErrNoDevice
	}
	course, ok := t.catalog.Course(courseID)
	if !ok {
		return CourseView{}, fmt.Errorf("%w: %s", ErrUnknownCourse, courseID)
	}

	snap, err := t.snapshot(ctx, id, deviceID, course)
	if err != nil {
		return CourseView{}, err
	}

	migrated := 0
	now := t.now().UTC()
	for _, s := range course.Sections {
		remote := snap.remote.Section(courseID, s.ID)
		local := OrdinalsToKeys(DecodeOrdinals(snap.local[LocalCacheKey(courseID, s.ID)]), s.Topics)

		rec := SectionRecord{}
		for key := range local {
			if remote[key].Completed {
				continue
			}
			at := now
			rec[key] = TopicCompletionRecord{Completed: true, CompletedAt: &at}
		}
		if len(rec) == 0 {
			continue
		}

		if err := t.enqueueWait(ctx, remoteOp{
			kind:      opMerge,
			userID:    id.UserID,
			courseID:  courseID,
			sectionID: s.ID,
			record:    rec,
		}); err != nil {
			return CourseView{}, fmt.Errorf("migrate section %s: %w", s.ID, err)
		}

		if snap.remote[courseID] == nil {
			snap.remote[courseID] = CourseRecord{}
		}
		if snap.remote[courseID][s.ID] == nil {
			snap.remote[courseID][s.ID] = SectionRecord{}
		}
		for key, r := range rec {
			snap.remote[courseID][s.ID][key] = r
		}
		migrated += len(rec)
	}

	t.logEvent(Event{
		UserID:    id.UserID,
		DeviceID:  deviceID,
		EventType: EventLocalMigrated,
		CourseID:  courseID,
		Data:      map[string]any{"topics": migrated},
	})
	slog.Info("local progress migrated",
		"user_id", id.UserID,
		"course_id", courseID,
		"topics", migrated,
	)

	view := buildCourseView(course, snap)
	for _, s := range view.Sections {
		t.publisher.Publish(id.Owner(deviceID), s)
	}
	return view, nil
}

// SubmitQuiz records a quiz score and completes the topic when it passes.
func (t *Tracker) SubmitQuiz(ctx context.Context, id auth.Identity, deviceID, courseID, sectionID, topicKey string, score float64) (QuizResult, error) {
	if math.IsNaN(score) || score < 0 || score > 100 {
		return QuizResult{}, ErrInvalidScore
	}
	_, _, topic, err := t.lookupTopic(courseID, sectionID, topicKey)
	if err != nil {
		return QuizResult{}, err
	}

	pass := t.passScore
	if topic.Quiz != nil && topic.Quiz.PassScore > 0 {
		pass = topic.Quiz.PassScore
	}

	result := QuizResult{Score: score, PassScore: pass, Passed: score >= pass}
	if !result.Passed {
		return result, nil
	}

	view, err := t.CompleteTopic(ctx, id, deviceID, courseID, sectionID, topicKey, Completion{QuizScore: &score})
	if err != nil {
		return QuizResult{}, err
	}
	result.Section = &view
	return result, nil
}

// SubmitCode runs a coding submission in the sandbox and completes the topic
// when it exits cleanly with the expected output.
func (t *Tracker) SubmitCode(ctx context.Context, id auth.Identity, deviceID, courseID, sectionID, topicKey, source string) (CodeResult, error) {
	_, _, topic, err := t.lookupTopic(courseID, sectionID, topicKey)
	if err != nil {
		return CodeResult{}, err
	}
	if topic.Coding == nil {
		return CodeResult{}, ErrNoExercise
	}
	if t.runner == nil {
		return CodeResult{}, ErrNoRunner
	}
	owner := id.Owner(deviceID)
	if owner == "" {
		return CodeResult{}, ErrNoProgressOwner
	}

	if t.quota != nil {
		ok, err := t.quota.Check(ctx, owner)
		if err != nil {
			return CodeResult{}, fmt.Errorf("check quota: %w", err)
		}
		if !ok {
			return CodeResult{}, executor.ErrQuotaExceeded
		}
		if err := t.quota.Record(ctx, owner); err != nil {
			slog.Warn("failed to record code run", "owner", owner, "error", err)
		}
	}

	run, err := t.runner.Run(ctx, executor.Submission{
		LanguageID: topic.Coding.LanguageID,
		SourceCode: source,
		Stdin:      topic.Coding.Stdin,
	})
	if err != nil {
		return CodeResult{}, fmt.Errorf("run submission: %w", err)
	}

	result := CodeResult{
		Run:    run,
		Passed: run.ExitCode == 0 && strings.TrimSpace(run.Stdout) == strings.TrimSpace(topic.Coding.ExpectedOutput),
	}
	if !result.Passed {
		return result, nil
	}

	view, err := t.CompleteTopic(ctx, id, deviceID, courseID, sectionID, topicKey, Completion{CodingCompleted: true})
	if err != nil {
		return CodeResult{}, err
	}
	result.Section = &view
	return result, nil
}

// Flush waits until every queued remote write has been applied.
func (t *Tracker) Flush(ctx context.Context) error {
	for i := range t.queues {
		done := make(chan error, 1)
		if err := t.send(ctx, t.queues[i], remoteOp{kind: opBarrier, done: done}); err != nil {
			return err
		}
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Close drains queued writes and stops the workers.
func (t *Tracker) Close() {
	t.closeMu.Lock()
	if t.closed {
		t.closeMu.Unlock()
		return
	}
	t.closed = true
	for _, q := range t.queues {
		close(q)
	}
	t.closeMu.Unlock()

	t.workers.Wait()
}

type snapshot struct {
	remote Document
	local  map[string][]byte // keyed by LocalCacheKey
}

// snapshot reads the remote document and every local entry of the given
// courses in parallel. Local read failures degrade to an absent entry;
// remote read failures are returned.
func (t *Tracker) snapshot(ctx context.Context, id auth.Identity, deviceID string, courses ...curriculum.Course) (snapshot, error) {
	snap := snapshot{remote: Document{}, local: make(map[string][]byte)}

	g, gctx := errgroup.WithContext(ctx)
	if !id.IsAnonymous() {
		g.Go(func() error {
			doc, err := t.remote.Load(gctx, id.UserID)
			if err != nil {
				return fmt.Errorf("load remote progress: %w", err)
			}
			if doc != nil {
				snap.remote = doc
			}
			return nil
		})
	}
	if deviceID != "" {
		g.Go(func() error {
			for _, c := range courses {
				for _, s := range c.Sections {
					raw, err := t.local.Read(gctx, deviceID, c.ID, s.ID)
					if err != nil {
						slog.Warn("local progress unreadable, treating as empty",
							"device_id", deviceID,
							"course_id", c.ID,
							"section_id", s.ID,
							"error", err,
						)
						continue
					}
					if raw != nil {
						snap.local[LocalCacheKey(c.ID, s.ID)] = raw
					}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}
	return snap, nil
}

func (t *Tracker) addLocal(ctx context.Context, deviceID, courseID string, section curriculum.Section, ordinal int) ([]byte, error) {
	raw, err := t.local.Add(ctx, deviceID, courseID, section.ID, ordinal)
	if err != nil {
		// Keep whatever is already cached in the returned view.
		prev, _ := t.local.Read(ctx, deviceID, courseID, section.ID)
		return prev, fmt.Errorf("write local progress: %w", err)
	}
	return raw, nil
}

func (t *Tracker) worker(ops <-chan remoteOp) {
	defer t.workers.Done()
	for op := range ops {
		err := t.apply(op)
		if op.done != nil {
			op.done <- err
			continue
		}
		if err != nil {
			slog.Error("remote progress write failed",
				"user_id", op.userID,
				"course_id", op.courseID,
				"section_id", op.sectionID,
				"error", err,
			)
		}
	}
}

func (t *Tracker) apply(op remoteOp) error {
	if op.kind == opBarrier {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), t.writeTimeout)
	defer cancel()

	switch op.kind {
	case opMerge:
		return t.remote.MergeSection(ctx, op.userID, op.courseID, op.sectionID, op.record)
	case opDelete:
		return t.remote.DeleteSection(ctx, op.userID, op.courseID, op.sectionID)
	default:
		return fmt.Errorf("unknown remote op %d", op.kind)
	}
}

// enqueue routes an op to the queue owned by its user so writes for one user
// are applied in order.
func (t *Tracker) enqueue(ctx context.Context, op remoteOp) error {
	h := fnv.New32a()
	h.Write([]byte(op.userID))
	return t.send(ctx, t.queues[h.Sum32()%uint32(len(t.queues))], op)
}

func (t *Tracker) enqueueWait(ctx context.Context, op remoteOp) error {
	op.done = make(chan error, 1)
	if err := t.enqueue(ctx, op); err != nil {
		return err
	}
	select {
	case err := <-op.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Tracker) send(ctx context.Context, q chan remoteOp, op remoteOp) error {
	t.closeMu.RLock()
	defer t.closeMu.RUnlock()
	if t.closed {
		return ErrTrackerClosed
	}
	select {
	case q <- op:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Tracker) logEvent(e Event) {
	if err := t.events.LogEvent(e); err != nil {
		slog.Warn("failed to log progress event", "type", e.EventType, "error", err)
	}
}

func (t *Tracker) lookupSection(courseID, sectionID string) (curriculum.Course, curriculum.Section, error) {
	course, ok := t.catalog.Course(courseID)
	if !ok {
		return curriculum.Course{}, curriculum.Section{}, fmt.Errorf("%w: %s", ErrUnknownCourse, courseID)
	}
	section, ok := course.Section(sectionID)
	if !ok {
		return curriculum.Course{}, curriculum.Section{}, fmt.Errorf("%w: %s/%s", ErrUnknownSection, courseID, sectionID)
	}
	return course, section, nil
}

func (t *Tracker) lookupTopic(courseID, sectionID, topicKey string) (curriculum.Course, curriculum.Section, curriculum.Topic, error) {
	course, section, err := t.lookupSection(courseID, sectionID)
	if err != nil {
		return curriculum.Course{}, curriculum.Section{}, curriculum.Topic{}, err
	}
	topic, ok := section.Topic(topicKey)
	if !ok {
		return curriculum.Course{}, curriculum.Section{}, curriculum.Topic{}, fmt.Errorf("%w: %s/%s/%s", ErrUnknownTopic, courseID, sectionID, topicKey)
	}
	return course, section, topic, nil
}

func sectionOnly(courseID string, s curriculum.Section) curriculum.Course {
	return curriculum.Course{ID: courseID, Sections: []curriculum.Section{s}}
}

func buildSectionView(courseID string, s curriculum.Section, remote SectionRecord, local []byte) SectionView {
	keys := ReconcileSection(remote, local, s.Topics)
	states := Classify(s.Topics, keys)

	topics := make([]TopicView, len(s.Topics))
	for i, tp := range s.Topics {
		v := TopicView{
			Key:     tp.TopicKey(),
			Ordinal: i + 1,
			Title:   tp.Title,
			State:   states[i+1],
		}
		if rec, ok := remote[v.Key]; ok {
			v.Record = &rec
		}
		topics[i] = v
	}

	return SectionView{
		CourseID:  courseID,
		SectionID: s.ID,
		Name:      s.Name,
		Progress:  ComputePercent(keys, len(s.Topics)),
		Topics:    topics,
	}
}

func buildCourseView(c curriculum.Course, snap snapshot) CourseView {
	remote := snap.remote[c.ID]
	local := make(map[string][]byte, len(c.Sections))
	sections := make([]SectionView, 0, len(c.Sections))
	for _, s := range c.Sections {
		raw := snap.local[LocalCacheKey(c.ID, s.ID)]
		local[s.ID] = raw
		sections = append(sections, buildSectionView(c.ID, s, remote[s.ID], raw))
	}

	return CourseView{
		CourseID: c.ID,
		Name:     c.Name,
		Progress: ReconcileCourse(c, remote, local),
		Sections: sections,
	}
}

// mergeRecord keeps details an earlier completion recorded that the new one lacks.
func mergeRecord(prev, next TopicCompletionRecord) TopicCompletionRecord {
	if next.QuizScore == nil {
		next.QuizScore = prev.QuizScore
	}
	if next.CodingCompleted == nil {
		next.CodingCompleted = prev.CodingCompleted
	}
	if prev.Completed && prev.CompletedAt != nil {
		next.CompletedAt = prev.CompletedAt
	}
	return next
}

func completionData(rec TopicCompletionRecord) map[string]any {
	data := map[string]any{}
	if rec.QuizScore != nil {
		data["quiz_score"] = *rec.QuizScore
	}
	if rec.CodingCompleted != nil {
		data["coding_completed"] = *rec.CodingCompleted
	}
	return data
}
