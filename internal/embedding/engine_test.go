package embedding

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name    string
		a, b    []float32
		want    float64
		wantErr bool
	}{
		{
			name: "identical vectors",
			a:    []float32{1, 2, 3},
			b:    []float32{1, 2, 3},
			want: 1.0,
		},
		{
			name: "orthogonal vectors",
			a:    []float32{1, 0},
			b:    []float32{0, 1},
			want: 0.0,
		},
		{
			name: "opposite vectors",
			a:    []float32{1, 0},
			b:    []float32{-1, 0},
			want: -1.0,
		},
		{
			name: "zero magnitude",
			a:    []float32{0, 0},
			b:    []float32{1, 1},
			want: 0.0,
		},
		{
			name:    "dimension mismatch",
			a:       []float32{1, 2},
			b:       []float32{1, 2, 3},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.a, tt.b)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("CosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFindTopK(t *testing.T) {
	query := []float32{1, 0}
	corpus := [][]float32{
		{0, 1},      // orthogonal
		{1, 0},      // identical
		{0.7, 0.7},  // diagonal
		{1, 0, 0},   // wrong dimensions, skipped
		{-1, 0},     // opposite
	}

	results, err := FindTopK(query, corpus, 2)
	if err != nil {
		t.Fatalf("FindTopK failed: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Index != 1 {
		t.Errorf("top result index = %d, want 1 (identical vector)", results[0].Index)
	}
	if results[1].Index != 2 {
		t.Errorf("second result index = %d, want 2 (diagonal vector)", results[1].Index)
	}
	if results[0].Similarity < results[1].Similarity {
		t.Error("results not sorted by similarity descending")
	}
}

func TestNewEngine_UnsupportedProvider(t *testing.T) {
	_, err := NewEngine(Config{Provider: "bogus"})
	if err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

func TestOllamaEngine_Defaults(t *testing.T) {
	e, err := NewOllamaEngine("", "")
	if err != nil {
		t.Fatalf("NewOllamaEngine failed: %v", err)
	}
	if e.Name() != "ollama:all-minilm" {
		t.Errorf("Name = %q, want ollama:all-minilm", e.Name())
	}
	if e.Dimensions() != 384 {
		t.Errorf("Dimensions = %d, want 384", e.Dimensions())
	}
}

func TestGenAIEngine_RequiresKey(t *testing.T) {
	_, err := NewGenAIEngine("", "")
	if err == nil {
		t.Fatal("expected error for missing API key")
	}
}
