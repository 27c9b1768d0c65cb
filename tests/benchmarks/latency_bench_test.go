package benchmarks

import (
	"context"
	"fmt"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/FairForge/gorest-e2e/internal/fakeapi"
	"github.com/FairForge/gorest-e2e/internal/gorest"
	"github.com/FairForge/gorest-e2e/internal/model"
	"github.com/FairForge/gorest-e2e/internal/xmlnorm"
)

func BenchmarkDecodeUsers(b *testing.B) {
	sizes := []int{10, 100}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("%dUsers", size), func(b *testing.B) {
			users := make([]model.User, size)
			for i := range users {
				users[i] = model.User{ID: i + 1, Name: "user", Email: fmt.Sprintf("u%d@mail.com", i), Gender: "male", Status: "active"}
			}
			body, err := xmlnorm.EncodeList(users)
			if err != nil {
				b.Fatal(err)
			}

			b.SetBytes(int64(len(body)))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := xmlnorm.DecodeUsers(body); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkListLatency(b *testing.B) {
	srv := httptest.NewServer(fakeapi.New(fakeapi.Options{SeedUsers: 250, DefaultLimit: 1 << 30}, zap.NewNop()).Handler())
	defer srv.Close()
	client := gorest.NewClient(srv.URL+fakeapi.BasePath, nil)

	for _, format := range []gorest.Format{gorest.FormatJSON, gorest.FormatXML} {
		b.Run(string(format), func(b *testing.B) {
			c := client.WithFormat(format)
			latencies := make([]time.Duration, 0, b.N)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				start := time.Now()
				resp, err := c.ListUsers(context.Background(), gorest.ListOptions{PerPage: 100})
				if err != nil {
					b.Fatal(err)
				}
				if _, err := resp.Users(); err != nil {
					b.Fatal(err)
				}
				latencies = append(latencies, time.Since(start))
			}

			if len(latencies) > 0 {
				sort.Slice(latencies, func(i, j int) bool {
					return latencies[i] < latencies[j]
				})

				p50 := latencies[len(latencies)*50/100]
				p95 := latencies[len(latencies)*95/100]
				p99 := latencies[len(latencies)*99/100]

				b.Logf("Format: %s - P50: %v, P95: %v, P99: %v", format, p50, p95, p99)
			}
		})
	}
}
