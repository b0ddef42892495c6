package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
)

type client struct {
	baseURL string
	http    *http.Client
}

// Pretty print JSON helper
func prettyPrint(body []byte) {
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		fmt.Println(string(body))
		return
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func (c *client) do(req *http.Request) (*http.Response, []byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	return resp, body, err
}

func (c *client) sendJSON(method, path string, payload interface{}) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if payload != nil {
		b, _ := json.Marshal(payload)
		bodyReader = bytes.NewBuffer(b)
	}
	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *client) upload(path string) (*http.Response, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("pdf", filepath.Base(path))
	if err != nil {
		return nil, nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, nil, err
	}
	if err := w.Close(); err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/upload-pdf", &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req)
}

func step(title string, resp *http.Response, body []byte, err error) bool {
	color.Yellow("\n%s", title)
	if err != nil {
		color.Red("Failed: %v", err)
		return false
	}
	if resp.StatusCode >= 400 {
		color.Red("Status: %s", resp.Status)
	} else {
		color.Green("Status: %s", resp.Status)
	}
	prettyPrint(body)
	return resp.StatusCode < 400
}

func main() {
	baseURL := flag.String("url", "http://localhost:5001", "server base URL")
	pdfPath := flag.String("pdf", "", "optional PDF to upload and question")
	question := flag.String("question", "What is this document about?", "question asked about the PDF")
	flag.Parse()

	jar, _ := cookiejar.New(nil)
	c := &client{baseURL: *baseURL, http: &http.Client{Jar: jar, Timeout: 2 * time.Minute}}

	color.Cyan("🚀 Starting PDF chat smoke test against %s\n", *baseURL)

	ok := true
	resp, body, err := c.sendJSON(http.MethodGet, "/health", nil)
	if !step("1. Health", resp, body, err) {
		os.Exit(1)
	}

	resp, body, err = c.sendJSON(http.MethodPost, "/chat", map[string]string{"message": "Hi, my name is Ada."})
	ok = step("2. Chat", resp, body, err) && ok

	resp, body, err = c.sendJSON(http.MethodPost, "/chat", map[string]string{"message": "What is my name?"})
	ok = step("3. Chat memory", resp, body, err) && ok

	if *pdfPath != "" {
		resp, body, err = c.upload(*pdfPath)
		ok = step("4. Upload PDF", resp, body, err) && ok

		resp, body, err = c.sendJSON(http.MethodGet, "/pdf-status", nil)
		ok = step("5. PDF status", resp, body, err) && ok

		resp, body, err = c.sendJSON(http.MethodPost, "/chat", map[string]string{"message": *question})
		ok = step("6. Ask the PDF", resp, body, err) && ok

		resp, body, err = c.sendJSON(http.MethodPost, "/remove-pdf", nil)
		ok = step("7. Remove PDF", resp, body, err) && ok
	} else {
		color.White("\nNo -pdf given, skipping document steps")
	}

	resp, body, err = c.sendJSON(http.MethodPost, "/reset", nil)
	ok = step("8. Reset session", resp, body, err) && ok

	if !ok {
		color.Red("\n❌ Smoke test finished with failures")
		os.Exit(1)
	}
	color.Cyan("\n✅ Smoke test passed")
}
