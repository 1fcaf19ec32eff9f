package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"modrand/internal/domain"
	"modrand/internal/storage/kv"

	"github.com/google/uuid"
)

// ExportVersion is written to every exported document.
const ExportVersion = 1

// ExportFileName is the suggested file name for an export made at now.
func ExportFileName(now time.Time) string {
	return "mod-randomizer-profiles-" + now.UTC().Format("2006-01-02") + ".json"
}

// MergeEngine imports and exports profile documents. Names are resolved
// against the inventory snapshot the collaborator last stored.
type MergeEngine struct {
	store   kv.Store
	log     *slog.Logger
	metrics *Metrics
}

// NewMergeEngine creates a merge engine. A nil logger uses slog.Default().
func NewMergeEngine(store kv.Store, logger *slog.Logger, metrics *Metrics) *MergeEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &MergeEngine{store: store, log: logger, metrics: metrics}
}

type importItem struct {
	ID   string
	Name string
}

type importProfile struct {
	Name  string
	Items []importItem
}

// Import adds the profiles of an exported document. Profiles whose name
// already exists (ignoring case) are skipped whole; existing profiles are
// never modified. Items are matched by id, then by name, against detected
// mods; the rest are reported in MissingMods. All imported profiles are
// stored in one write, and nothing is written when none were imported.
func (m *MergeEngine) Import(ctx context.Context, data []byte) (domain.ImportResult, error) {
	batch := uuid.NewString()
	incoming, err := parseImport(data)
	if err != nil {
		m.log.Warn("rejected profile file", "batch", batch, "error", err)
		return domain.ImportResult{}, err
	}

	vals, err := kv.Read(ctx, m.store, domain.KeyProfiles, domain.KeyProfilesOrder, domain.KeyDetectedModList)
	if err != nil {
		return domain.ImportResult{}, err
	}
	profiles := domain.Profiles{}
	order := domain.ProfileOrder{}
	var detected []domain.Mod
	if _, err := vals.Decode(domain.KeyProfiles, &profiles); err != nil {
		return domain.ImportResult{}, err
	}
	if _, err := vals.Decode(domain.KeyProfilesOrder, &order); err != nil {
		return domain.ImportResult{}, err
	}
	if _, err := vals.Decode(domain.KeyDetectedModList, &detected); err != nil {
		return domain.ImportResult{}, err
	}

	detectedIDs := domain.NameIndex(detected)
	byName := make(map[string]string, len(detected))
	for _, mod := range detected {
		key := strings.ToLower(mod.Name)
		if _, ok := byName[key]; !ok {
			byName[key] = mod.ID
		}
	}

	result := domain.ImportResult{
		Batch:       batch,
		Imported:    []string{},
		Skipped:     []string{},
		MissingMods: map[string][]string{},
	}

	for _, p := range incoming {
		if _, exists := profiles.Lookup(p.Name); exists {
			result.Skipped = append(result.Skipped, p.Name)
			continue
		}

		valid := []string{}
		var missing []string
		for _, item := range p.Items {
			if _, ok := detectedIDs[item.ID]; ok && item.ID != "" {
				valid = appendMissing(valid, []string{item.ID})
				continue
			}
			if item.Name != "" {
				if id, ok := byName[strings.ToLower(item.Name)]; ok {
					valid = appendMissing(valid, []string{id})
					continue
				}
				missing = append(missing, item.Name)
				continue
			}
			missing = append(missing, domain.UnknownLabel(item.ID))
		}

		profiles[p.Name] = valid
		order[p.Name] = append([]string{}, valid...)
		result.Imported = append(result.Imported, p.Name)
		if len(missing) > 0 {
			result.MissingMods[p.Name] = missing
		}
	}

	m.metrics.imported(OutcomeImported, len(result.Imported))
	m.metrics.imported(OutcomeSkipped, len(result.Skipped))

	if len(result.Imported) == 0 {
		return result, nil
	}

	if err := m.store.Set(ctx, map[string]any{
		domain.KeyProfiles:      profiles,
		domain.KeyProfilesOrder: order,
	}); err != nil {
		return domain.ImportResult{}, fmt.Errorf("saving imported profiles: %w", err)
	}

	m.log.Info("profiles imported", "batch", batch, "imported", len(result.Imported), "skipped", len(result.Skipped))
	return result, nil
}

// parseImport decodes the profiles object keeping document order.
func parseImport(data []byte) ([]importProfile, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFormat, err)
	}
	raw, ok := doc["profiles"]
	if !ok || !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		return nil, domain.ErrFormat
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFormat, err)
	}

	var out []importProfile
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrFormat, err)
		}
		name, _ := tok.(string)

		var items []json.RawMessage
		if err := dec.Decode(&items); err != nil {
			return nil, fmt.Errorf("%w: profile %q: %v", domain.ErrFormat, name, err)
		}

		p := importProfile{Name: name}
		for _, rawItem := range items {
			item, err := parseImportItem(rawItem)
			if err != nil {
				return nil, fmt.Errorf("%w: profile %q: %v", domain.ErrFormat, name, err)
			}
			p.Items = append(p.Items, item)
		}
		out = append(out, p)
	}
	return out, nil
}

// parseImportItem accepts {"id","name"} objects and bare id strings.
func parseImportItem(raw json.RawMessage) (importItem, error) {
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return importItem{ID: id}, nil
	}
	var mod domain.ExportedMod
	if err := json.Unmarshal(raw, &mod); err != nil {
		return importItem{}, fmt.Errorf("unsupported mod entry %s", raw)
	}
	return importItem{ID: mod.ID, Name: mod.Name}, nil
}

// Export builds a document of every profile, naming mods from the stored
// inventory snapshot.
func (m *MergeEngine) Export(ctx context.Context, now time.Time) (domain.ExportDocument, error) {
	vals, err := kv.Read(ctx, m.store, domain.KeyProfiles, domain.KeyDetectedModList)
	if err != nil {
		return domain.ExportDocument{}, err
	}
	profiles := domain.Profiles{}
	var detected []domain.Mod
	if _, err := vals.Decode(domain.KeyProfiles, &profiles); err != nil {
		return domain.ExportDocument{}, err
	}
	if _, err := vals.Decode(domain.KeyDetectedModList, &detected); err != nil {
		return domain.ExportDocument{}, err
	}
	if len(profiles) == 0 {
		return domain.ExportDocument{}, domain.ErrNoProfiles
	}

	names := domain.NameIndex(detected)
	doc := domain.ExportDocument{
		Version:    ExportVersion,
		ExportDate: now.UTC().Format(time.RFC3339),
		Profiles:   make(map[string][]domain.ExportedMod, len(profiles)),
	}
	for name, ids := range profiles {
		mods := make([]domain.ExportedMod, 0, len(ids))
		for _, id := range ids {
			label := names[id]
			if label == "" {
				label = domain.UnknownLabel(id)
			}
			mods = append(mods, domain.ExportedMod{ID: id, Name: label})
		}
		doc.Profiles[name] = mods
	}
	return doc, nil
}
