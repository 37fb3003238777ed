package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Benchmark settings
var (
	targetURL   string
	concurrency int
	duration    time.Duration
	workload    string
	jwtSecret   string
	userPool    int
)

// Metrics
var (
	totalRequests uint64
	success200    uint64 // Draws completed
	fail403       uint64 // Rate limited / quota hit
	fail409       uint64 // Conflicts
	failOther     uint64
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API Base URL")
	flag.IntVar(&concurrency, "workers", 10, "Number of concurrent workers")
	flag.DurationVar(&duration, "duration", 30*time.Second, "Test duration")
	flag.StringVar(&workload, "workload", "status", "Workload type: status | draw | hotspot")
	flag.StringVar(&jwtSecret, "secret", os.Getenv("JWT_SECRET"), "HS256 secret for generated tokens")
	flag.IntVar(&userPool, "users", 1000, "Size of the simulated user pool")
}

func main() {
	flag.Parse()
	if jwtSecret == "" {
		log.Fatal("A JWT secret is required (-secret or JWT_SECRET)")
	}
	log.Printf("Starting Benchmark: %s | Workers: %d | Duration: %s", workload, concurrency, duration)

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for i := 0; i < concurrency; i++ {
		go worker(&wg, start)
	}

	wg.Wait()
	printResults(time.Since(start))
}

func worker(wg *sync.WaitGroup, start time.Time) {
	defer wg.Done()
	client := &http.Client{Timeout: 5 * time.Second}

	for time.Since(start) < duration {
		userID := pickUser()
		token, err := signToken(userID)
		if err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}

		method, path := "GET", "/draw/status"
		if workload == "draw" {
			method, path = "POST", "/draw/daily"
		}

		req, _ := http.NewRequest(method, targetURL+path, nil)
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := client.Do(req)
		if err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}

		atomic.AddUint64(&totalRequests, 1)
		switch resp.StatusCode {
		case 200:
			atomic.AddUint64(&success200, 1)
		case 403:
			atomic.AddUint64(&fail403, 1)
		case 409:
			atomic.AddUint64(&fail409, 1)
		default:
			atomic.AddUint64(&failOther, 1)
		}
		resp.Body.Close()
	}
}

func pickUser() string {
	if workload == "hotspot" {
		// Hotspot: 90% of traffic comes from two users, stressing the
		// per-user serialization path.
		if rand.Float32() < 0.90 {
			if rand.Float32() < 0.5 {
				return "bench-user-001"
			}
			return "bench-user-002"
		}
	}
	return fmt.Sprintf("bench-user-%03d", rand.Intn(userPool)+1)
}

func signToken(userID string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
}

func printResults(d time.Duration) {
	total := atomic.LoadUint64(&totalRequests)
	ok := atomic.LoadUint64(&success200)
	f403 := atomic.LoadUint64(&fail403)
	f409 := atomic.LoadUint64(&fail409)
	fErr := atomic.LoadUint64(&failOther)

	tps := float64(total) / d.Seconds()

	results := map[string]interface{}{
		"workload":       workload,
		"duration_sec":   d.Seconds(),
		"total_requests": total,
		"throughput_tps": tps,
		"success":        ok,
		"gated_403":      f403,
		"conflicts_409":  f409,
		"errors":         fErr,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(results)

	filename := fmt.Sprintf("results_%s.json", workload)
	file, _ := os.Create(filename)
	defer file.Close()
	json.NewEncoder(file).Encode(results)
}
