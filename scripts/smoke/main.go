// Command smoke exercises a running gradebook API end to end: login, load a
// grading sheet and optionally save a draft. Intended for deploy checks.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Warnings []string `json:"warnings"`
}

func main() {
	var (
		base     string
		email    string
		password string
		classID  string
		term     string
		examType string
		timeout  time.Duration
		write    bool
	)

	flag.StringVar(&base, "base", "http://localhost:8080/api/v1", "API base URL")
	flag.StringVar(&email, "email", "", "login email")
	flag.StringVar(&password, "password", "", "login password")
	flag.StringVar(&classID, "class", "", "class ID to load")
	flag.StringVar(&term, "term", "Term 1", "term")
	flag.StringVar(&examType, "exam", "midterm", "exam type")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.BoolVar(&write, "write", false, "also save an empty draft (no rows are written)")
	flag.Parse()

	if email == "" || password == "" || classID == "" {
		log.Fatal("email, password and class are required")
	}

	client := &http.Client{Timeout: timeout}

	token, err := login(client, base, email, password)
	if err != nil {
		log.Fatalf("login failed: %v", err)
	}
	fmt.Println("login: ok")

	start := time.Now()
	warnings, err := loadSheet(client, base, token, classID, term, examType)
	if err != nil {
		log.Fatalf("sheet load failed: %v", err)
	}
	fmt.Printf("sheet load: ok (%s)\n", time.Since(start).Round(time.Millisecond))
	for _, w := range warnings {
		fmt.Printf("  warning: %s\n", w)
	}

	if write {
		if err := saveDraft(client, base, token, classID, term, examType); err != nil {
			log.Fatalf("draft save failed: %v", err)
		}
		fmt.Println("draft save: ok")
	}

	os.Exit(0)
}

func login(client *http.Client, base, email, password string) (string, error) {
	payload, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp, err := client.Post(base+"/auth/login", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	env, err := decode(resp)
	if err != nil {
		return "", err
	}
	var data struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", err
	}
	if data.AccessToken == "" {
		return "", fmt.Errorf("no access token in response")
	}
	return data.AccessToken, nil
}

func loadSheet(client *http.Client, base, token, classID, term, examType string) ([]string, error) {
	q := url.Values{}
	q.Set("classId", classID)
	q.Set("term", term)
	q.Set("examType", examType)

	req, err := http.NewRequest(http.MethodGet, base+"/gradebook/sheet?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	env, err := decode(resp)
	if err != nil {
		return nil, err
	}
	return env.Warnings, nil
}

func saveDraft(client *http.Client, base, token, classID, term, examType string) error {
	payload, _ := json.Marshal(map[string]interface{}{
		"class_id":  classID,
		"term":      term,
		"exam_type": examType,
		"grades":    map[string]interface{}{},
	})
	req, err := http.NewRequest(http.MethodPost, base+"/gradebook/draft", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, err = decode(resp)
	return err
}

func decode(resp *http.Response) (*envelope, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("status %d: unparseable body", resp.StatusCode)
	}
	if env.Error != nil {
		return nil, fmt.Errorf("status %d: %s (%s)", resp.StatusCode, env.Error.Message, env.Error.Code)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return &env, nil
}
