package providers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/samvad-hq/rss-opinion/internal/domain"
)

// sourceRecord is one entry of the sources file.
type sourceRecord struct {
	Name                    string   `json:"name" yaml:"name"`
	RSSLink                 string   `json:"rss_link" yaml:"rss_link"`
	Editorial               string   `json:"editorial" yaml:"editorial"`
	Authors                 []string `json:"authors" yaml:"authors"`
	TelegramFiltersByAuthor bool     `json:"telegram_filters_by_author" yaml:"telegram_filters_by_author"`
	IncludeDescription      bool     `json:"include_description" yaml:"include_description"`
	TwitterEnabled          *bool    `json:"twitter_enabled" yaml:"twitter_enabled"`
}

// Registry holds the sources configured for one invocation.
type Registry struct {
	sources []domain.Source
	idx     map[string]int
}

// LoadRegistry loads sources from a JSON or YAML file. Any invalid record fails the whole load.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("%w: sources file path is empty", domain.ErrConfiguration)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open sources file: %w", domain.ErrConfiguration, err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("%w: read sources file: %w", domain.ErrConfiguration, err)
	}

	return ParseRegistry([]byte(os.ExpandEnv(string(raw))), filepath.Ext(path))
}

// ParseRegistry decodes and validates sources. ext selects the decoder; empty tries all.
func ParseRegistry(data []byte, ext string) (*Registry, error) {
	records, err := decodeSources(data, ext)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: sources file contains no entries", domain.ErrConfiguration)
	}

	reg := &Registry{
		sources: make([]domain.Source, 0, len(records)),
		idx:     make(map[string]int, len(records)),
	}
	keys := make(map[string]string, len(records))

	for i, rec := range records {
		src, err := buildSource(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: sources[%d]: %w", domain.ErrConfiguration, i, err)
		}
		if _, exists := reg.idx[src.Name]; exists {
			return nil, fmt.Errorf("%w: duplicate source name %q", domain.ErrConfiguration, src.Name)
		}
		if other, exists := keys[src.Key]; exists {
			return nil, fmt.Errorf("%w: sources %q and %q share storage key %q", domain.ErrConfiguration, other, src.Name, src.Key)
		}
		keys[src.Key] = src.Name
		reg.idx[src.Name] = len(reg.sources)
		reg.sources = append(reg.sources, src)
	}

	return reg, nil
}

// decodeSources attempts to decode the file content strictly.
func decodeSources(data []byte, ext string) ([]sourceRecord, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, *[]sourceRecord) error
	}{
		{name: "json", ext: ".json", fn: decodeJSON},
		{name: "yaml", ext: ".yaml", fn: decodeYAML},
		{name: "yaml", ext: ".yml", fn: decodeYAML},
	}

	var errs []error
	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var out []sourceRecord
		err := d.fn(data, &out)
		if err == nil {
			return out, nil
		}
		errs = append(errs, fmt.Errorf("decode %s sources: %w", d.name, err))
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("sources file extension %q not recognized (expected .json, .yaml or .yml)", ext)
	}
	return nil, errors.Join(errs...)
}

func decodeJSON(data []byte, out *[]sourceRecord) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func decodeYAML(data []byte, out *[]sourceRecord) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(out)
}

// buildSource sanitizes a record and resolves its flags.
func buildSource(rec sourceRecord) (domain.Source, error) {
	name := strings.TrimSpace(rec.Name)
	if name == "" {
		return domain.Source{}, errors.New("name is required")
	}

	link := strings.TrimSpace(rec.RSSLink)
	if link == "" {
		return domain.Source{}, fmt.Errorf("rss_link is required for source %q", name)
	}
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.Source{}, fmt.Errorf("rss_link %q is not an http(s) url for source %q", link, name)
	}

	stance := domain.Stance(strings.ToLower(strings.TrimSpace(rec.Editorial)))
	if !stance.Valid() {
		return domain.Source{}, fmt.Errorf("editorial %q not supported for source %q (expected left or right)", rec.Editorial, name)
	}

	key := domain.SourceKey(name)
	if key == "" || strings.Contains(key, "/") {
		return domain.Source{}, fmt.Errorf("source name %q does not produce a usable storage key", name)
	}

	authors := make([]string, 0, len(rec.Authors))
	for _, a := range rec.Authors {
		if a = strings.TrimSpace(a); a != "" {
			authors = append(authors, a)
		}
	}

	twitter := stance == domain.StanceRight
	if rec.TwitterEnabled != nil {
		twitter = *rec.TwitterEnabled
	}

	return domain.Source{
		Name:                    name,
		Key:                     key,
		FeedURL:                 link,
		Editorial:               stance,
		Authors:                 authors,
		TelegramFiltersByAuthor: rec.TelegramFiltersByAuthor,
		IncludeDescription:      rec.IncludeDescription,
		TwitterEnabled:          twitter,
	}, nil
}

// All returns the sources in file order.
func (r *Registry) All() []domain.Source {
	if r == nil {
		return nil
	}
	out := make([]domain.Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// ByName returns the source with the given name.
func (r *Registry) ByName(name string) (domain.Source, bool) {
	if r == nil {
		return domain.Source{}, false
	}
	i, ok := r.idx[strings.TrimSpace(name)]
	if !ok {
		return domain.Source{}, false
	}
	return r.sources[i], true
}

// Len returns the number of sources.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.sources)
}
