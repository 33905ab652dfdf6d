package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quizdrill/backend/internal/domain/questionset"
	"github.com/quizdrill/backend/internal/store"
)

// File is the YAML shape of a seed file: a list of question sets with
// their questions. Seeded sets carry no owner, so any user may edit
// them.
type File struct {
	Sets []SetSpec `yaml:"sets"`
}

type SetSpec struct {
	Name      string         `yaml:"name"`
	Questions []QuestionSpec `yaml:"questions"`
}

type QuestionSpec struct {
	Text       string `yaml:"text"`
	Difficulty string `yaml:"difficulty"`
	Tags       string `yaml:"tags"`
	Position   int    `yaml:"position"`
}

// Load reads the seed file and creates any set whose name is not
// already present. Existing sets are left alone, so seeding is safe to
// run on every startup.
func Load(ctx context.Context, path string, st store.Store, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	now := time.Now().UTC()
	created := 0
	for _, spec := range file.Sets {
		if _, err := st.FindQuestionSetByName(ctx, spec.Name); err == nil {
			continue
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		qs, err := questionset.New("", spec.Name, now)
		if err != nil {
			logger.Warn("skipping invalid seed set", "name", spec.Name, "error", err)
			continue
		}
		for _, q := range spec.Questions {
			if _, err := qs.AddQuestion(q.Text, questionset.Difficulty(q.Difficulty), q.Tags, q.Position); err != nil {
				logger.Warn("skipping invalid seed question", "set", spec.Name, "error", err)
			}
		}
		questionset.SortQuestions(qs.Questions)

		if err := st.SaveQuestionSet(ctx, qs); err != nil {
			return err
		}
		created++
	}

	if created > 0 {
		logger.Info("seeded question sets", "created", created, "file", path)
	}
	return nil
}
