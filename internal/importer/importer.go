package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/storage"
	"gopkg.in/yaml.v3"
)

// Stats tracks import progress.
type Stats struct {
	FilesProcessed int
	FilesSkipped   int
	FilesErrored   int

	WorkoutsInserted   int
	WorkoutsDuplicated int
	ExercisesCreated   int
	ExercisesReused    int
	SetsInserted       int
}

// Template is one workout template file.
type Template struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description"`
	Exercises   []TemplateExercise `yaml:"exercises"`
}

type TemplateExercise struct {
	Name string        `yaml:"name"`
	Sets []TemplateSet `yaml:"sets"`
}

type TemplateSet struct {
	WeightKg float64 `yaml:"weight_kg"`
	Reps     int     `yaml:"reps"`
}

func (t *Template) validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return errors.New("name is required")
	}
	for i, ex := range t.Exercises {
		if strings.TrimSpace(ex.Name) == "" {
			return fmt.Errorf("exercise %d: name is required", i+1)
		}
		for j, s := range ex.Sets {
			if !models.IsFinite(s.WeightKg) || s.Reps < 0 {
				return fmt.Errorf("exercise %q set %d: invalid weight or reps", ex.Name, j+1)
			}
		}
	}
	return nil
}

// Importer reads YAML workout templates and creates the workouts, library
// exercises, compositions and planned sets they describe.
type Importer struct {
	db     *storage.DB
	log    *slog.Logger
	dryRun bool
	stats  Stats

	// exercise ids by name, including ones created in this run
	exerciseIDs map[string]string
}

// New creates a new Importer.
func New(db *storage.DB, log *slog.Logger, dryRun bool) *Importer {
	return &Importer{db: db, log: log, dryRun: dryRun, exerciseIDs: map[string]string{}}
}

// Import processes a single template file or every .yaml/.yml file in a
// directory, in file name order. Malformed files are counted and skipped.
func (imp *Importer) Import(ctx context.Context, path string) (*Stats, error) {
	files, err := templateFiles(path)
	if err != nil {
		return &imp.stats, err
	}

	for _, f := range files {
		tmpl, err := ParseTemplate(f)
		if err != nil {
			imp.log.Warn("template parse failed", "file", f, "error", err)
			imp.stats.FilesErrored++
			continue
		}
		if len(tmpl.Exercises) == 0 {
			imp.log.Info("skipping template without exercises", "file", f)
			imp.stats.FilesSkipped++
			continue
		}
		if err := imp.importTemplate(ctx, tmpl); err != nil {
			return &imp.stats, fmt.Errorf("importing %s: %w", filepath.Base(f), err)
		}
		imp.stats.FilesProcessed++
	}
	return &imp.stats, nil
}

func templateFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(path, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// ParseTemplate reads and validates one template file.
func ParseTemplate(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (imp *Importer) importTemplate(ctx context.Context, t *Template) error {
	existing, err := imp.db.FindWorkoutByName(ctx, t.Name)
	switch {
	case err == nil:
		imp.log.Info("workout already exists, skipping", "name", t.Name, "id", existing.ID)
		imp.stats.WorkoutsDuplicated++
		return nil
	case !errors.Is(err, storage.ErrWorkoutNotFound):
		return err
	}

	exerciseIDs := make([]string, 0, len(t.Exercises))
	for _, ex := range t.Exercises {
		id, err := imp.exerciseID(ctx, ex.Name)
		if err != nil {
			return err
		}
		exerciseIDs = append(exerciseIDs, id)
	}

	if imp.dryRun {
		imp.stats.WorkoutsInserted++
		for _, ex := range t.Exercises {
			imp.stats.SetsInserted += len(ex.Sets)
		}
		return nil
	}

	var desc *string
	if d := strings.TrimSpace(t.Description); d != "" {
		desc = &d
	}
	w, err := imp.db.CreateWorkout(ctx, strings.TrimSpace(t.Name), desc)
	if err != nil {
		return err
	}
	imp.stats.WorkoutsInserted++

	for i, ex := range t.Exercises {
		if err := imp.db.AddWorkoutExercise(ctx, w.ID, exerciseIDs[i]); err != nil {
			return fmt.Errorf("composing %q: %w", ex.Name, err)
		}
		for _, s := range ex.Sets {
			in := models.NewSet{ExerciseID: exerciseIDs[i], WeightKg: s.WeightKg, Reps: s.Reps}
			if _, err := imp.db.AppendSet(ctx, w.ID, in); err != nil {
				return fmt.Errorf("adding set to %q: %w", ex.Name, err)
			}
			imp.stats.SetsInserted++
		}
	}

	imp.log.Info("imported workout", "name", w.Name, "id", w.ID, "exercises", len(t.Exercises))
	return nil
}

// exerciseID finds a library exercise by name or creates it.
func (imp *Importer) exerciseID(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if id, ok := imp.exerciseIDs[name]; ok {
		return id, nil
	}

	e, err := imp.db.FindExerciseByName(ctx, name)
	switch {
	case err == nil:
		imp.stats.ExercisesReused++
		imp.exerciseIDs[name] = e.ID
		return e.ID, nil
	case !errors.Is(err, storage.ErrExerciseNotFound):
		return "", err
	}

	imp.stats.ExercisesCreated++
	if imp.dryRun {
		id := "dry-run:" + name
		imp.exerciseIDs[name] = id
		return id, nil
	}
	e, err = imp.db.CreateExercise(ctx, name)
	if err != nil {
		return "", err
	}
	imp.exerciseIDs[name] = e.ID
	return e.ID, nil
}
