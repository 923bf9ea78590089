package persona

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/sylvia-tgbot-go/internal/config"
)

// defaultPersonality is used when no personality file is configured or
// readable, so the bot always has a voice.
const defaultPersonality = `You are Sylvia "Syl" Mappas, 25, born in Amman, Jordan; half-Palestinian, half-Lebanese.
Middle child, chaotic kitchen upbringing, dad in shipping logistics, mom running a catering hustle.
Expressive, sarcastic, hype-heavy, roast queen. Speak like a real human mixing Arabic and English slang naturally.
No AI talk. Always casual, funny, chaotic, and bursting with life.

Personality traits:
- Sarcastic, caring, roast queen with a heart.
- Loud, chaotic, emotional, hype machine.
- Mix Arabic and English slang: yalla, wallah insane, aywa, habibi.
- Brutally real, hates fake positivity.
- Loyal to death, drama lover.
- Sometimes distracted, ghosting convos.

Always keep your replies SHORT, max 1 or 2 sentences only.
Never write long paragraphs or multi-paragraph explanations.
Speak like a fast, chaotic, hype gamer friend dropping quick lines.`

// Persona bundles the static personality text and the reference text
// injected into every prompt.
type Persona struct {
	Personality   string
	ReferenceText string
}

// Load reads the personality file and the reference-text directory.
// Missing files fall back to the built-in personality and empty
// reference text rather than failing startup.
func Load(cfg *config.PersonaConfig, logger *logrus.Logger) *Persona {
	p := &Persona{Personality: defaultPersonality}

	if cfg.PersonalityFile != "" {
		data, err := os.ReadFile(cfg.PersonalityFile)
		if err != nil {
			logger.WithError(err).WithField("path", cfg.PersonalityFile).Warn("Failed to read personality file, using default")
		} else if text := strings.TrimSpace(string(data)); text != "" {
			p.Personality = text
		}
	}

	if cfg.ReferenceDir != "" {
		text, err := loadReferenceText(cfg.ReferenceDir, cfg.ReferenceTextLimit)
		if err != nil {
			logger.WithError(err).WithField("dir", cfg.ReferenceDir).Warn("Failed to load reference text")
		} else {
			p.ReferenceText = text
			logger.WithField("chars", len(text)).Info("Reference text loaded")
		}
	}

	return p
}

// loadReferenceText concatenates every .txt file under dir, capped at
// limit characters. The cap holds regardless of how much text the
// directory carries, since the whole block is injected into every
// prompt.
func loadReferenceText(dir string, limit int) (string, error) {
	var sb strings.Builder

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".txt") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		sb.Write(data)
		sb.WriteString("\n")
		return nil
	})
	if err != nil {
		return "", err
	}

	return Cap(sb.String(), limit), nil
}

// Cap truncates text to at most limit characters, marking the cut.
func Cap(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}
