// Loadtest drives an unwrap endpoint with a rotating mix of in-app and
// regular browser user agents and reports latency percentiles and the
// response kind each client type received.
//
// Usage:
//
//	go run loadtest.go -endpoint http://localhost:8080/unwrap -target https://example.com -concurrency 10 -requests 1000
//	go run loadtest.go -endpoint http://localhost:8080/api/redirect -concurrency 50 -requests 5000 -csv results.csv -out summary.json
//
// Redirects are never followed, so every sample measures a single hop. Each
// request carries an X-Forwarded-For address from a pool of -clients. The
// server only keys its rate limiter on that header when the load generator's
// address is listed in server.trusted_proxies; otherwise every request shares
// one bucket.
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

type userAgent struct {
	label string
	value string
}

var userAgents = []userAgent{
	{"instagram-ios", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Mobile/15E148 Instagram 307.0.0.34.111 (iPhone15,2; iOS 17_1; en_US; en; scale=3.00; 1179x2556; 531017012)"},
	{"facebook-android", "Mozilla/5.0 (Linux; Android 13; Pixel 7 Build/TQ3A.230805.001; wv) AppleWebKit/537.36 (KHTML, like Gecko) Version/4.0 Chrome/116.0.5845.163 Mobile Safari/537.36 [FB_IAB/FB4A;FBAV/430.0.0.23.113;]"},
	{"tiktok-android", "Mozilla/5.0 (Linux; Android 12; SM-G991B Build/SP1A.210812.016; wv) AppleWebKit/537.36 (KHTML, like Gecko) Version/4.0 Chrome/110.0.5481.153 Mobile Safari/537.36 musical_ly_2022803040 JsSdk/1.0 NetType/WIFI Channel/googleplay AppName/musical_ly app_version/28.3.4 ByteLocale/en"},
	{"safari-ios", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1"},
	{"chrome-desktop", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"},
}

// ClientStats tracks what one user agent type received.
type ClientStats struct {
	Count     int32            `json:"count"`
	Kinds     map[string]int32 `json:"kinds"`
	Latencies []time.Duration  `json:"-"`
}

type ClientSummary struct {
	Count int32            `json:"count"`
	Kinds map[string]int32 `json:"kinds"`
	P50   float64          `json:"p50_ms"`
	P90   float64          `json:"p90_ms"`
	P95   float64          `json:"p95_ms"`
	P99   float64          `json:"p99_ms"`
}

func main() {
	var (
		endpoint    = flag.String("endpoint", "http://localhost:8080/unwrap", "Unwrap endpoint")
		target      = flag.String("target", "https://example.com/article?id=1", "Destination passed as the url parameter")
		forceWeb    = flag.Bool("forceweb", false, "Send forceweb=true")
		concurrency = flag.Int("concurrency", 10, "Number of concurrent workers")
		requests    = flag.Int("requests", 100, "Total number of requests to send")
		clients     = flag.Int("clients", 50, "Distinct fake client addresses")
		timeoutSec  = flag.Int("timeout", 10, "Per-request timeout in seconds")
	)

	outJSON := flag.String("out", "", "Write JSON summary to this file (optional)")
	outCSV := flag.String("csv", "", "Write per-request CSV to this file (optional)")
	verbose := flag.Bool("v", false, "Verbose per-request logging to stdout")
	flag.Parse()

	requestURL, err := buildURL(*endpoint, *target, *forceWeb)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid endpoint: %v\n", err)
		os.Exit(1)
	}
	if *clients < 1 {
		*clients = 1
	}

	client := &http.Client{
		Timeout: time.Duration(*timeoutSec) * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	jobs := make(chan int)
	var wg sync.WaitGroup

	var total, success, failure int32

	clientStats := make(map[string]*ClientStats)
	var statsMu sync.Mutex

	var allLatencies []time.Duration
	var latMu sync.Mutex

	statusCodes := make(map[int]int32)
	var statusMu sync.Mutex

	var csvFile *os.File
	var csvWriter *csv.Writer
	var csvMu sync.Mutex
	if *outCSV != "" {
		f, err := os.Create(*outCSV)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create csv file: %v\n", err)
			os.Exit(1)
		}
		csvFile = f
		csvWriter = csv.NewWriter(f)
		csvWriter.Write([]string{"idx", "timestamp", "client", "status", "kind", "duration_ms"})
	}

	testStart := time.Now()

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for idx := range jobs {
				atomic.AddInt32(&total, 1)
				ua := userAgents[idx%len(userAgents)]

				req, err := http.NewRequest(http.MethodGet, requestURL, nil)
				if err != nil {
					atomic.AddInt32(&failure, 1)
					continue
				}
				req.Header.Set("User-Agent", ua.value)
				req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.%d.%d", (idx%*clients)/250, (idx%*clients)%250+1))

				start := time.Now()
				resp, err := client.Do(req)
				dur := time.Since(start)

				latMu.Lock()
				allLatencies = append(allLatencies, dur)
				latMu.Unlock()

				if err != nil {
					atomic.AddInt32(&failure, 1)
					if *verbose {
						fmt.Printf("[%d] idx=%d error=%v\n", workerID, idx, err)
					}
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()

				kind := responseKind(resp)

				statusMu.Lock()
				statusCodes[resp.StatusCode]++
				statusMu.Unlock()

				if resp.StatusCode < http.StatusBadRequest {
					atomic.AddInt32(&success, 1)
				} else {
					atomic.AddInt32(&failure, 1)
				}

				statsMu.Lock()
				cs, ok := clientStats[ua.label]
				if !ok {
					cs = &ClientStats{Kinds: make(map[string]int32)}
					clientStats[ua.label] = cs
				}
				cs.Count++
				cs.Kinds[kind]++
				cs.Latencies = append(cs.Latencies, dur)
				statsMu.Unlock()

				if csvWriter != nil {
					csvMu.Lock()
					csvWriter.Write([]string{
						strconv.Itoa(idx),
						time.Now().Format(time.RFC3339Nano),
						ua.label,
						strconv.Itoa(resp.StatusCode),
						kind,
						fmt.Sprintf("%.3f", float64(dur.Microseconds())/1000.0),
					})
					csvMu.Unlock()
				}

				if *verbose {
					fmt.Printf("[%d] idx=%d client=%s status=%d kind=%s dur=%v\n", workerID, idx, ua.label, resp.StatusCode, kind, dur)
				}
			}
		}(i)
	}

	go func() {
		for i := 0; i < *requests; i++ {
			jobs <- i
		}
		close(jobs)
	}()

	wg.Wait()
	totalDuration := time.Since(testStart)

	if csvWriter != nil {
		csvWriter.Flush()
		csvFile.Close()
	}

	throughput := float64(total) / totalDuration.Seconds()

	fmt.Println("--- Load Test Summary ---")
	fmt.Printf("Endpoint: %s\n", requestURL)
	fmt.Printf("Requests: %d  Concurrency: %d  Clients: %d\n", *requests, *concurrency, *clients)
	fmt.Printf("Total sent: %d  Success: %d  Failure: %d\n", total, success, failure)
	fmt.Printf("Duration: %v  Throughput: %.2f req/s\n", totalDuration, throughput)

	fmt.Println("\nStatus codes:")
	var scKeys []int
	for k := range statusCodes {
		scKeys = append(scKeys, k)
	}
	sort.Ints(scKeys)
	for _, k := range scKeys {
		fmt.Printf("  %d -> %d\n", k, statusCodes[k])
	}

	summaries := summarize(clientStats)

	fmt.Println("\nResponses by client:")
	labels := make([]string, 0, len(summaries))
	for k := range summaries {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	for _, label := range labels {
		s := summaries[label]
		fmt.Printf("  %s -> total=%d kinds=%v\n", label, s.Count, s.Kinds)
		fmt.Printf("    latencies: p50=%.2fms p90=%.2fms p95=%.2fms p99=%.2fms\n", s.P50, s.P90, s.P95, s.P99)
	}

	if len(allLatencies) > 0 {
		sorted := sortedCopy(allLatencies)
		var sum time.Duration
		for _, d := range sorted {
			sum += d
		}
		fmt.Println("\nOverall latencies:")
		fmt.Printf("  samples=%d min=%v avg=%v max=%v p50=%v p90=%v p95=%v p99=%v\n",
			len(sorted), sorted[0], sum/time.Duration(len(sorted)), sorted[len(sorted)-1],
			pick(sorted, 0.50), pick(sorted, 0.90), pick(sorted, 0.95), pick(sorted, 0.99))
	}

	fmt.Printf("\nGOMAXPROCS=%d  NumGoroutine=%d\n", runtime.GOMAXPROCS(0), runtime.NumGoroutine())

	if *outJSON != "" {
		report := map[string]interface{}{
			"endpoint":       requestURL,
			"requests":       *requests,
			"concurrency":    *concurrency,
			"total_sent":     total,
			"success":        success,
			"failure":        failure,
			"duration_ms":    totalDuration.Milliseconds(),
			"throughput_rps": throughput,
			"status_codes":   statusCodes,
			"clients":        summaries,
		}

		f, err := os.Create(*outJSON)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create json file: %v\n", err)
			os.Exit(1)
		}
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		enc.Encode(report)
		f.Close()
		fmt.Printf("\nWrote JSON summary to %s\n", *outJSON)
	}

	if failure > 0 {
		os.Exit(2)
	}
}

func buildURL(endpoint, target string, forceWeb bool) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("url", target)
	if forceWeb {
		q.Set("forceweb", "true")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// responseKind names what a browser would have seen.
func responseKind(resp *http.Response) string {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "rate_limited"
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		return "redirect"
	case resp.StatusCode == http.StatusOK:
		return "document"
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return "rejected"
	default:
		return "error"
	}
}

func summarize(stats map[string]*ClientStats) map[string]ClientSummary {
	out := make(map[string]ClientSummary, len(stats))
	for label, cs := range stats {
		s := ClientSummary{Count: cs.Count, Kinds: cs.Kinds}
		if len(cs.Latencies) > 0 {
			sorted := sortedCopy(cs.Latencies)
			ms := func(p float64) float64 { return float64(pick(sorted, p).Microseconds()) / 1000.0 }
			s.P50 = ms(0.50)
			s.P90 = ms(0.90)
			s.P95 = ms(0.95)
			s.P99 = ms(0.99)
		}
		out[label] = s
	}
	return out
}

func sortedCopy(in []time.Duration) []time.Duration {
	out := make([]time.Duration, len(in))
	copy(out, in)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func pick(sorted []time.Duration, p float64) time.Duration {
	idx := int(float64(len(sorted)-1) * p)
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}
