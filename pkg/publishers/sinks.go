package publishers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/samvad-hq/rss-opinion/internal/domain"
)

// Sink kinds and the queue providers a queue sink can target.
const (
	KindQueue   = "queue"
	KindWebhook = "webhook"

	ProviderSQS    = "aws-sqs"
	ProviderSNS    = "aws-sns"
	ProviderPubSub = "gcp-pubsub"

	defaultWebhookMethod  = "POST"
	defaultWebhookTimeout = 5
)

// sinkFile is the top level of the sinks file.
type sinkFile struct {
	Sinks []SinkConfig `json:"sinks" yaml:"sinks"`
}

// SinkConfig declares one event sink. Sources and Editorial narrow which
// entries reach it; empty means every entry.
type SinkConfig struct {
	ID        string       `json:"id" yaml:"id"`
	Kind      string       `json:"kind" yaml:"kind"`
	Enabled   *bool        `json:"enabled" yaml:"enabled"`
	Sources   []string     `json:"sources" yaml:"sources"`
	Editorial string       `json:"editorial" yaml:"editorial"`
	Queue     *QueueSink   `json:"queue" yaml:"queue"`
	Webhook   *WebhookSink `json:"webhook" yaml:"webhook"`
}

// QueueSink selects a message broker.
type QueueSink struct {
	Provider string        `json:"provider" yaml:"provider"`
	SQS      *SQSTarget    `json:"sqs" yaml:"sqs"`
	SNS      *SNSTarget    `json:"sns" yaml:"sns"`
	PubSub   *PubSubTarget `json:"pubsub" yaml:"pubsub"`
}

// AWSKeys are optional static credentials; without them the default AWS
// credential chain applies.
type AWSKeys struct {
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
}

type SQSTarget struct {
	QueueURL string   `json:"queue_url" yaml:"queue_url"`
	Region   string   `json:"region" yaml:"region"`
	Keys     *AWSKeys `json:"keys" yaml:"keys"`
}

type SNSTarget struct {
	TopicARN string   `json:"topic_arn" yaml:"topic_arn"`
	Region   string   `json:"region" yaml:"region"`
	Keys     *AWSKeys `json:"keys" yaml:"keys"`
}

type PubSubTarget struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
}

// WebhookSink posts each event as JSON.
type WebhookSink struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// IsEnabled defaults to true.
func (c SinkConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Accepts reports whether an event passes the sink's source and editorial filters.
func (c SinkConfig) Accepts(evt Event) bool {
	if len(c.Sources) > 0 && !slices.Contains(c.Sources, evt.Source) {
		return false
	}
	return c.Editorial == "" || c.Editorial == evt.Editorial
}

// SinkSet is the validated content of a sinks file, in file order.
type SinkSet struct {
	sinks []SinkConfig
}

// LoadSinks reads a YAML or JSON sinks file. ${VAR} placeholders are expanded
// before decoding so credentials can stay in the environment.
func LoadSinks(path string) (*SinkSet, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("%w: sinks file path is empty", domain.ErrConfiguration)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read sinks file: %w", domain.ErrConfiguration, err)
	}
	return ParseSinks([]byte(os.ExpandEnv(string(raw))), filepath.Ext(path))
}

// ParseSinks decodes and validates sink declarations. ext picks the decoder.
func ParseSinks(data []byte, ext string) (*SinkSet, error) {
	var file sinkFile
	if err := decodeSinkFile(data, strings.ToLower(ext), &file); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	if len(file.Sinks) == 0 {
		return nil, fmt.Errorf("%w: sinks file declares no sinks", domain.ErrConfiguration)
	}

	seen := make(map[string]struct{}, len(file.Sinks))
	var problems []error
	for i := range file.Sinks {
		s := &file.Sinks[i]
		s.normalize()
		if err := s.validate(); err != nil {
			problems = append(problems, fmt.Errorf("sinks[%d]: %w", i, err))
			continue
		}
		if _, dup := seen[s.ID]; dup {
			problems = append(problems, fmt.Errorf("sinks[%d]: duplicate id %q", i, s.ID))
		}
		seen[s.ID] = struct{}{}
	}
	if err := errors.Join(problems...); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	return &SinkSet{sinks: file.Sinks}, nil
}

func decodeSinkFile(data []byte, ext string, out *sinkFile) error {
	switch ext {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(out)
	case ".yaml", ".yml", "":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		return dec.Decode(out)
	default:
		return fmt.Errorf("sinks file extension %q not supported (expected .yaml, .yml or .json)", ext)
	}
}

// All returns every declared sink.
func (s *SinkSet) All() []SinkConfig {
	if s == nil {
		return nil
	}
	return slices.Clone(s.sinks)
}

// Enabled returns the sinks that are switched on.
func (s *SinkSet) Enabled() []SinkConfig {
	var out []SinkConfig
	for _, c := range s.All() {
		if c.IsEnabled() {
			out = append(out, c)
		}
	}
	return out
}

// byID looks a sink up by id.
func (s *SinkSet) byID(id string) (SinkConfig, bool) {
	for _, c := range s.All() {
		if c.ID == strings.TrimSpace(id) {
			return c, true
		}
	}
	return SinkConfig{}, false
}

func (c *SinkConfig) normalize() {
	c.ID = strings.TrimSpace(c.ID)
	c.Kind = strings.ToLower(strings.TrimSpace(c.Kind))
	c.Editorial = strings.ToLower(strings.TrimSpace(c.Editorial))
	c.Sources = trimAll(c.Sources)

	if q := c.Queue; q != nil {
		q.Provider = strings.ToLower(strings.TrimSpace(q.Provider))
		if t := q.SQS; t != nil {
			t.QueueURL, t.Region = strings.TrimSpace(t.QueueURL), strings.TrimSpace(t.Region)
			t.Keys = t.Keys.normalized()
		}
		if t := q.SNS; t != nil {
			t.TopicARN, t.Region = strings.TrimSpace(t.TopicARN), strings.TrimSpace(t.Region)
			t.Keys = t.Keys.normalized()
		}
		if t := q.PubSub; t != nil {
			t.ProjectID, t.Topic = strings.TrimSpace(t.ProjectID), strings.TrimSpace(t.Topic)
			t.CredentialsFile = strings.TrimSpace(t.CredentialsFile)
		}
	}
	if w := c.Webhook; w != nil {
		w.URL = strings.TrimSpace(w.URL)
		w.Method = strings.ToUpper(strings.TrimSpace(w.Method))
		if w.Method == "" {
			w.Method = defaultWebhookMethod
		}
		if w.TimeoutSeconds <= 0 {
			w.TimeoutSeconds = defaultWebhookTimeout
		}
		w.Headers = cleanHeaders(w.Headers)
	}
}

// normalized drops key pairs that are entirely blank.
func (k *AWSKeys) normalized() *AWSKeys {
	if k == nil {
		return nil
	}
	out := AWSKeys{AccessKeyID: strings.TrimSpace(k.AccessKeyID), SecretAccessKey: strings.TrimSpace(k.SecretAccessKey)}
	if out.AccessKeyID == "" && out.SecretAccessKey == "" {
		return nil
	}
	return &out
}

func (c SinkConfig) validate() error {
	if c.ID == "" {
		return errors.New("id is required")
	}
	if c.Editorial != "" && !domain.Stance(c.Editorial).Valid() {
		return fmt.Errorf("sink %q: editorial %q must be left or right", c.ID, c.Editorial)
	}

	switch c.Kind {
	case KindWebhook:
		if c.Webhook == nil || c.Webhook.URL == "" {
			return fmt.Errorf("sink %q: webhook.url is required", c.ID)
		}
		return nil
	case KindQueue:
		if c.Queue == nil {
			return fmt.Errorf("sink %q: queue section is required", c.ID)
		}
		return c.Queue.validate(c.ID)
	case "":
		return fmt.Errorf("sink %q: kind is required", c.ID)
	default:
		return fmt.Errorf("sink %q: kind %q not supported", c.ID, c.Kind)
	}
}

func (q QueueSink) validate(id string) error {
	var missing []string
	switch q.Provider {
	case ProviderSQS:
		if q.SQS == nil {
			return fmt.Errorf("sink %q: queue.sqs section is required", id)
		}
		missing = blank(map[string]string{"queue_url": q.SQS.QueueURL, "region": q.SQS.Region})
		missing = append(missing, q.SQS.Keys.incomplete()...)
	case ProviderSNS:
		if q.SNS == nil {
			return fmt.Errorf("sink %q: queue.sns section is required", id)
		}
		missing = blank(map[string]string{"topic_arn": q.SNS.TopicARN, "region": q.SNS.Region})
		missing = append(missing, q.SNS.Keys.incomplete()...)
	case ProviderPubSub:
		if q.PubSub == nil {
			return fmt.Errorf("sink %q: queue.pubsub section is required", id)
		}
		missing = blank(map[string]string{"project_id": q.PubSub.ProjectID, "topic": q.PubSub.Topic})
	default:
		return fmt.Errorf("sink %q: queue provider %q not supported", id, q.Provider)
	}
	if len(missing) > 0 {
		return fmt.Errorf("sink %q: %s required", id, strings.Join(missing, ", "))
	}
	return nil
}

// incomplete names the half of a key pair that is missing.
func (k *AWSKeys) incomplete() []string {
	if k == nil {
		return nil
	}
	return blank(map[string]string{"keys.access_key_id": k.AccessKeyID, "keys.secret_access_key": k.SecretAccessKey})
}

// blank returns the sorted names of empty fields.
func blank(fields map[string]string) []string {
	var out []string
	for name, v := range fields {
		if v == "" {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

func trimAll(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func cleanHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if k, v = strings.TrimSpace(k), strings.TrimSpace(v); k != "" && v != "" {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
