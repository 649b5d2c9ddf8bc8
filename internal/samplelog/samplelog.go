// Package samplelog generates synthetic access logs with seeded attack
// traffic, useful for demos and for exercising the anomaly rules.
package samplelog

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"
)

var ips = []string{"192.168.1.1", "192.168.1.2", "192.168.1.3", "10.0.0.1", "10.0.0.2"}

var paths = []string{
	"/index.html",
	"/about.html",
	"/contact.html",
	"/products/item1.html",
	"/products/item2.html",
	"/admin/login.php",
	"/images/logo.png",
	"/css/style.css",
	"/js/script.js",
	"/api/data",
}

var methods = []string{"GET", "POST", "PUT", "DELETE"}

var statusCodes = []int{200, 201, 301, 302, 400, 401, 403, 404, 500, 503}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.1.1 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/92.0.4515.107 Safari/537.36",
}

var sqlInjectionPaths = []string{
	"/search?q=1' OR '1'='1",
	"/login?username=admin'--&password=anything",
	"/products?id=1 UNION SELECT username,password FROM users",
	"/profile?id=1; DROP TABLE users",
	"/api/data?filter=name='admin' OR 1=1",
}

var pathTraversalPaths = []string{
	"/../../etc/passwd",
	"/../../../etc/shadow",
	"/images/../../config.php",
	"/download?file=../../../etc/passwd",
	"/theme/../../config/database.php",
}

const timestampLayout = "02/Jan/2006:15:04:05 -0700"

// Generator produces synthetic Combined Log Format lines.
type Generator struct {
	rng   *rand.Rand
	start time.Time
	end   time.Time
}

// NewGenerator creates a generator seeded for reproducible output. Lines
// are spread over one synthetic month.
func NewGenerator(seed int64) *Generator {
	return &Generator{
		rng:   rand.New(rand.NewSource(seed)),
		start: time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC),
		end:   time.Date(2023, 4, 30, 0, 0, 0, 0, time.UTC),
	}
}

// Write emits normal traffic plus seeded attack entries: SQL injection
// probes from one host, traversal attempts from another, and a burst of
// 404s from a third.
func (g *Generator) Write(w io.Writer, normalLines int) error {
	for i := 0; i < normalLines; i++ {
		line := g.line(
			g.pick(ips),
			g.pick(methods),
			g.pick(paths),
			statusCodes[g.rng.Intn(len(statusCodes))],
			100+g.rng.Intn(9900),
		)
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	for i := 0; i < 20; i++ {
		line := g.line("192.168.1.100", "GET", g.pick(sqlInjectionPaths), 400, 100+g.rng.Intn(400))
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	for i := 0; i < 15; i++ {
		line := g.line("10.0.0.100", "GET", g.pick(pathTraversalPaths), 404, 100+g.rng.Intn(400))
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	for i := 0; i < 30; i++ {
		path := fmt.Sprintf("/not-found-%d.html", 1+g.rng.Intn(100))
		line := g.line("192.168.1.200", "GET", path, 404, 100+g.rng.Intn(400))
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	return nil
}

// WriteFile generates a sample log at path.
func (g *Generator) WriteFile(path string, normalLines int) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()
	return g.Write(file, normalLines)
}

func (g *Generator) line(ip, method, path string, status, size int) string {
	span := int64(g.end.Sub(g.start) / time.Second)
	ts := g.start.Add(time.Duration(g.rng.Int63n(span)) * time.Second)
	return fmt.Sprintf(`%s - - [%s] "%s %s HTTP/1.1" %d %d "-" "%s"`,
		ip, ts.Format(timestampLayout), method, path, status, size, g.pick(userAgents))
}

func (g *Generator) pick(options []string) string {
	return options[g.rng.Intn(len(options))]
}
