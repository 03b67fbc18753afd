package mockmodel

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/valentinpelus/birdwatch/pkg/types"
)

// Confidences of the two predictions
const (
	TopConfidence    = 0.92
	SecondConfidence = 0.07
)

// Species is the fixed list predictions are drawn from
var Species = []string{
	"Cardinalis cardinalis",
	"Piranga rubra",
	"Columba livia",
	"Corvus brachyrhynchos",
	"Sturnus vulgaris",
	"Passer domesticus",
	"Meleagris gallopavo",
	"Buteo jamaicensis",
	"Turdus migratorius",
	"Cyanocitta cristata",
}

// Model returns two random, distinct species for any image
type Model struct {
	version string
	logger  logrus.FieldLogger

	mu  sync.Mutex
	rnd *rand.Rand
}

// New creates a model. A nil src seeds from the runtime.
func New(version string, src rand.Source, logger logrus.FieldLogger) *Model {
	var rnd *rand.Rand
	if src != nil {
		rnd = rand.New(src)
	} else {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Model{version: version, logger: logger, rnd: rnd}
}

// Predict builds an envelope for req
func (m *Model) Predict(req types.InferenceRequest) types.InferenceEnvelope {
	m.mu.Lock()
	top := m.rnd.IntN(len(Species))
	second := m.rnd.IntN(len(Species) - 1)
	m.mu.Unlock()

	if second >= top {
		second++
	}

	m.logger.WithFields(logrus.Fields{
		"image_url": req.ImageURL,
		"top":       Species[top],
	}).Info("Mock analysis complete")

	return types.InferenceEnvelope{
		ModelVersion: m.version,
		Predictions: []types.Prediction{
			{Species: Species[top], Confidence: TopConfidence},
			{Species: Species[second], Confidence: SecondConfidence},
		},
	}
}

// HandleLambda is the Lambda entry point. The envelope is returned as a JSON
// string, which the runtime encodes once more.
func (m *Model) HandleLambda(_ context.Context, req types.InferenceRequest) (string, error) {
	body, err := json.Marshal(m.Predict(req))
	if err != nil {
		return "", fmt.Errorf("failed to encode envelope: %w", err)
	}
	return string(body), nil
}

// ServeHTTP answers POSTed requests with the envelope JSON
func (m *Model) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req types.InferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(m.Predict(req)); err != nil {
		m.logger.WithError(err).Error("Failed to write envelope")
	}
}
