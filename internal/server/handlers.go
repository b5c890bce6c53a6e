package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/raaihank/jsonnymous/internal/document"
	"github.com/raaihank/jsonnymous/internal/engine"
	"github.com/raaihank/jsonnymous/internal/websocket"
	"go.uber.org/zap"
)

type generateBody struct {
	Skeleton json.RawMessage        `json:"skeleton"`
	Swagger  json.RawMessage        `json:"swagger"`
	Options  engine.GenerateOptions `json:"options"`
}

type documentBody struct {
	Data    json.RawMessage `json:"data"`
	Format  engine.Format   `json:"format"`
	Options struct {
		Seed *int64 `json:"seed"`
	} `json:"options"`
}

type randomJSONBody struct {
	Options engine.RandomRequest `json:"options"`
}

type randomXMLBody struct {
	Options engine.RandomXMLRequest `json:"options"`
}

type xmlValidateBody struct {
	XML     *string `json:"xml"`
	Options struct {
		Format bool `json:"format"`
	} `json:"options"`
}

type xmlPathBody struct {
	XML     *string `json:"xml"`
	XPath   *string `json:"xpath"`
	Options struct {
		Format engine.Format `json:"format"`
	} `json:"options"`
}

// handleGenerate fills a JSON skeleton
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	s.generate(w, r, engine.FormatJSON)
}

// handleGenerateXML fills an XML skeleton and returns XML text
func (s *Server) handleGenerateXML(w http.ResponseWriter, r *http.Request) {
	s.generate(w, r, engine.FormatXML)
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request, format engine.Format) {
	start := time.Now()
	var body generateBody
	if !s.decode(w, r, &body) {
		return
	}
	if missing(body.Skeleton) {
		s.fail(w, http.StatusBadRequest, envelope{Error: "Missing required field: skeleton"})
		return
	}

	req := engine.GenerateRequest{Format: format, Skeleton: body.Skeleton, Options: body.Options}
	if format == engine.FormatXML {
		req.Skeleton = payload(body.Skeleton)
	}
	if !missing(body.Swagger) {
		req.Schema = payload(body.Swagger)
	}

	resp, err := s.engine.Generate(req)
	observeOperation("generate", err, leaves(resp))
	if err != nil {
		s.operationError(w, r, "generate", err)
		return
	}

	data, ok := s.encodeDocument(w, r, resp.Document, format)
	if !ok {
		return
	}
	s.publish(r, "generate", format, http.StatusOK, resp.Metadata.ItemCount, resp.Metadata.Stats.Leaves, start)
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data, Metadata: resp.Metadata})
}

// handleAnonymize replaces sensitive values in a JSON or XML document
func (s *Server) handleAnonymize(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var body documentBody
	if !s.decode(w, r, &body) {
		return
	}
	if missing(body.Data) {
		s.fail(w, http.StatusBadRequest, envelope{Error: "Missing required field: data"})
		return
	}
	format := formatOf(body.Format)

	resp, err := s.engine.Anonymize(engine.AnonymizeRequest{Format: format, Document: documentBytes(body.Data, format), Seed: body.Options.Seed})
	if resp != nil {
		observeOperation("anonymize", err, resp.Metadata.AnonymizedFields)
	} else {
		observeOperation("anonymize", err, 0)
	}
	if err != nil {
		s.operationError(w, r, "anonymize", err)
		return
	}

	data, ok := s.encodeDocument(w, r, resp.Document, format)
	if !ok {
		return
	}
	s.publish(r, "anonymize", format, http.StatusOK, 0, resp.Metadata.AnonymizedFields, start)
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data, Metadata: resp.Metadata})
}

// handleAnalyze lists the sensitive fields of a document
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var body documentBody
	if !s.decode(w, r, &body) {
		return
	}
	if missing(body.Data) {
		s.fail(w, http.StatusBadRequest, envelope{Error: "Missing required field: data"})
		return
	}
	format := formatOf(body.Format)

	resp, err := s.engine.Analyze(engine.AnalyzeRequest{Format: format, Document: documentBytes(body.Data, format)})
	if resp != nil {
		observeOperation("analyze", err, len(resp.Fields))
	} else {
		observeOperation("analyze", err, 0)
	}
	if err != nil {
		s.operationError(w, r, "analyze", err)
		return
	}

	s.publish(r, "analyze", format, http.StatusOK, 0, len(resp.Fields), start)
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*engine.AnalyzeResponse
	}{true, resp})
}

// handleRandomJSON builds a random JSON document
func (s *Server) handleRandomJSON(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var body randomJSONBody
	if !s.decode(w, r, &body) {
		return
	}

	resp, err := s.engine.GenerateRandom(body.Options)
	observeOperation("random-json", err, 0)
	if err != nil {
		s.operationError(w, r, "random-json", err)
		return
	}

	s.publish(r, "random-json", engine.FormatJSON, http.StatusOK, resp.Metadata.ItemCount, 0, start)
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: resp.Document, Metadata: resp.Metadata})
}

// handleRandomXML builds a random XML document and returns XML text
func (s *Server) handleRandomXML(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var body randomXMLBody
	if !s.decode(w, r, &body) {
		return
	}

	resp, err := s.engine.GenerateRandomXML(body.Options)
	observeOperation("random-xml", err, 0)
	if err != nil {
		s.operationError(w, r, "random-xml", err)
		return
	}

	data, ok := s.encodeDocument(w, r, resp.Document, engine.FormatXML)
	if !ok {
		return
	}
	s.publish(r, "random-xml", engine.FormatXML, http.StatusOK, resp.Metadata.ItemCount, 0, start)
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data, Metadata: resp.Metadata})
}

// handleXMLValidate reports whether a document is well-formed XML.
// Malformed XML is a successful call with isValid false.
func (s *Server) handleXMLValidate(w http.ResponseWriter, r *http.Request) {
	var body xmlValidateBody
	if !s.decode(w, r, &body) {
		return
	}
	if body.XML == nil {
		s.fail(w, http.StatusBadRequest, envelope{Error: "Missing required field: xml"})
		return
	}

	resp := s.engine.ValidateXML([]byte(*body.XML), body.Options.Format)
	observeOperation("xml-validate", nil, 0)
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*engine.ValidateXMLResponse
		Metadata map[string]any `json:"metadata"`
	}{true, resp, map[string]any{"validatedAt": time.Now().UTC()}})
}

// handleXMLPath evaluates an XPath expression over an XML document
func (s *Server) handleXMLPath(w http.ResponseWriter, r *http.Request) {
	var body xmlPathBody
	if !s.decode(w, r, &body) {
		return
	}
	switch {
	case body.XML == nil:
		s.fail(w, http.StatusBadRequest, envelope{Error: "Missing required field: xml"})
		return
	case body.XPath == nil:
		s.fail(w, http.StatusBadRequest, envelope{Error: "Missing required field: xpath"})
		return
	}

	resp, err := s.engine.XPath(engine.XPathRequest{XML: []byte(*body.XML), XPath: *body.XPath, Format: body.Options.Format})
	observeOperation("xml-path", err, 0)
	if err != nil {
		s.operationError(w, r, "xml-path", err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*engine.XPathResponse
		Metadata map[string]any `json:"metadata"`
	}{true, resp, map[string]any{"evaluatedAt": time.Now().UTC(), "xpath": *body.XPath}})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	status, env := decodeBody(r, v)
	if env != nil {
		s.fail(w, status, *env)
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, status int, env envelope) {
	env.Success = false
	writeJSON(w, status, env)
}

func (s *Server) operationError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status, env := errorResponse(err)
	log := s.logger.WithRequestID(getRequestID(r.Context()))
	if status >= http.StatusInternalServerError {
		log.Error("Operation failed", zap.String("operation", operation), zap.Error(err))
	} else {
		log.Info("Operation rejected", zap.String("operation", operation), zap.Error(err))
	}
	s.publish(r, operation, "", status, 0, 0, time.Time{})
	s.fail(w, status, env)
}

// encodeDocument returns the document itself for JSON and its text for XML
func (s *Server) encodeDocument(w http.ResponseWriter, r *http.Request, doc *document.Node, format engine.Format) (any, bool) {
	if format != engine.FormatXML {
		return doc, true
	}
	out, err := engine.Render(doc, engine.FormatXML, true)
	if err != nil {
		s.operationError(w, r, "render", err)
		return nil, false
	}
	return string(out), true
}

// publish sends a content-free summary of the call to the event feed
func (s *Server) publish(r *http.Request, operation string, format engine.Format, status, items, fields int, start time.Time) {
	event := websocket.OperationEvent{
		Operation:  operation,
		Format:     string(format),
		StatusCode: status,
		ItemCount:  items,
		FieldCount: fields,
		ClientIP:   websocket.ClientIP(r),
	}
	if !start.IsZero() {
		event.ProcessingMS = float64(time.Since(start).Microseconds()) / 1000
	}
	s.wsHub.BroadcastEvent(websocket.Event{
		Type:      websocket.EventTypeOperation,
		Timestamp: time.Now(),
		RequestID: getRequestID(r.Context()),
		Data:      event,
	})
}

func formatOf(f engine.Format) engine.Format {
	if f == "" {
		return engine.FormatJSON
	}
	return f
}

// documentBytes returns the JSON text of an embedded document, or the XML
// text carried in a string
func documentBytes(raw json.RawMessage, format engine.Format) []byte {
	if format == engine.FormatXML {
		return payload(raw)
	}
	return raw
}

func leaves(resp *engine.GenerateResponse) int {
	if resp == nil {
		return 0
	}
	return resp.Metadata.Stats.Leaves
}
