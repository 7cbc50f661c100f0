package format

import (
	"sort"
	"strconv"
	"strings"

	"github.com/vyrodovalexey/apimorph/internal/observability"
)

// contentTypeAliases maps alternative media types onto the ones the
// built-in formatters produce.
var contentTypeAliases = map[string]string{
	"text/json":                ContentTypeJSON,
	"text/javascript":          ContentTypeJavaScript,
	"application/x-javascript": ContentTypeJavaScript,
	"text/xml":                 ContentTypeXML,
	"application/x-yaml":       ContentTypeYAML,
	"text/yaml":                ContentTypeYAML,
	"text/x-yaml":              ContentTypeYAML,
	"application/protobuf":     ContentTypeProtobuf,
	"application/x-protobuf":   ContentTypeProtobuf,
}

// Negotiator selects a format id from an Accept header.
type Negotiator struct {
	logger        observability.Logger
	metrics       *Metrics
	defaultFormat string
	supported     []supportedType
}

type supportedType struct {
	contentType string
	format      string
}

// NegotiatorOption is a functional option for configuring the negotiator.
type NegotiatorOption func(*Negotiator)

// WithNegotiatorLogger sets the logger for the negotiator.
func WithNegotiatorLogger(logger observability.Logger) NegotiatorOption {
	return func(n *Negotiator) {
		n.logger = logger
	}
}

// WithNegotiatorMetrics sets the metrics for the negotiator.
func WithNegotiatorMetrics(metrics *Metrics) NegotiatorOption {
	return func(n *Negotiator) {
		n.metrics = metrics
	}
}

// NewNegotiator creates a negotiator over the content types of the catalog.
// The default format is preferred for wildcard matches and returned when
// nothing matches.
func NewNegotiator(c *Catalog, defaultFormat string, opts ...NegotiatorOption) *Negotiator {
	n := &Negotiator{
		logger:        observability.NopLogger(),
		defaultFormat: defaultFormat,
	}

	for _, opt := range opts {
		opt(n)
	}

	for ct, id := range c.ContentTypes() {
		n.supported = append(n.supported, supportedType{contentType: ct, format: id})
	}
	sort.Slice(n.supported, func(i, j int) bool {
		a, b := n.supported[i], n.supported[j]
		if (a.format == defaultFormat) != (b.format == defaultFormat) {
			return a.format == defaultFormat
		}
		return a.contentType < b.contentType
	})

	return n
}

// Negotiate returns the format id for the Accept header and whether it was
// matched rather than defaulted.
func (n *Negotiator) Negotiate(acceptHeader string) (string, bool) {
	if strings.TrimSpace(acceptHeader) == "" {
		n.record(n.defaultFormat, "default")
		return n.defaultFormat, false
	}

	mediaTypes := parseAcceptHeader(acceptHeader)

	// Sort by quality (descending), keeping header order between equals
	sort.SliceStable(mediaTypes, func(i, j int) bool {
		return mediaTypes[i].quality > mediaTypes[j].quality
	})

	for _, mt := range mediaTypes {
		if mt.quality <= 0 {
			continue
		}
		for _, s := range n.supported {
			if matchMediaType(mt.mediaType, s.contentType) {
				n.logger.Debug("format negotiated",
					observability.String("accept", acceptHeader),
					observability.String("format", s.format))
				n.record(s.format, "matched")
				return s.format, true
			}
		}
	}

	n.logger.Debug("no matching format, using default",
		observability.String("accept", acceptHeader),
		observability.String("default", n.defaultFormat))
	n.record(n.defaultFormat, "default")

	return n.defaultFormat, false
}

func (n *Negotiator) record(format, result string) {
	if n.metrics != nil {
		n.metrics.RecordNegotiation(format, result)
	}
}

// mediaType represents a parsed media type from the Accept header.
type mediaType struct {
	mediaType string
	quality   float64
}

// parseAcceptHeader parses an Accept header into media types with quality values.
// Example: "application/json, application/xml;q=0.9, */*;q=0.8"
func parseAcceptHeader(header string) []mediaType {
	parts := strings.Split(header, ",")
	result := make([]mediaType, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		mt := mediaType{quality: 1.0}

		segments := strings.Split(part, ";")
		mt.mediaType = normalizeMediaType(segments[0])

		for _, segment := range segments[1:] {
			segment = strings.TrimSpace(segment)
			if qStr, ok := strings.CutPrefix(segment, "q="); ok {
				if q, err := strconv.ParseFloat(qStr, 64); err == nil {
					mt.quality = q
				}
			}
		}

		result = append(result, mt)
	}

	return result
}

func normalizeMediaType(mt string) string {
	mt = strings.ToLower(strings.TrimSpace(mt))
	if alias, ok := contentTypeAliases[mt]; ok {
		return alias
	}
	return mt
}

// matchMediaType checks if a requested media type matches a supported type.
// Supports wildcards (*/*) and partial wildcards (application/*).
func matchMediaType(requested, supported string) bool {
	if requested == supported || requested == "*/*" || requested == "*" {
		return true
	}

	if prefix, ok := strings.CutSuffix(requested, "/*"); ok {
		return strings.HasPrefix(supported, prefix+"/")
	}

	return false
}
