package services

import (
	"context"
	"fmt"
	"os"

	"github.com/careertrack/careertrack/internal/logger"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

type LLMService struct {
	Client llms.Model
}

// NewLLMService initializes the Gemini client from GEMINI_API_KEY.
func NewLLMService() *LLMService {
	log := logger.Get()
	ctx := context.Background()

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		log.Fatal().Msg("GEMINI_API_KEY is empty; did you load the .env file?")
	}

	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel("gemini-2.5-flash"),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}

	return &LLMService{Client: llm}
}

const jobExtractionPrompt = `
You are an expert Job Data Extraction Agent. Your task is to analyze the provided raw HTML/Text from a job posting and extract structured data.

### INSTRUCTIONS:
1. **Analyze** the text to identify the core job details.
2. **Ignore** navigation menus, footers, "similar jobs" lists, and site advertisements.
3. **Extract** the following fields strictly.
4. **Format** the output as valid JSON only. Do not wrap the output in markdown code blocks.

### OUTPUT SCHEMA:
{
    "company": "Name of the company (e.g., Google, StartupInc)",
    "job_title": "Job title (e.g., Senior Backend Engineer)",
    "location": "Job location or 'Remote'",
    "description": "A clean summary of the job. Focus on Responsibilities and Requirements. Remove HTML tags.",
    "url": "Canonical posting URL if present, otherwise null",
    "salary_range": "The salary string if explicitly mentioned (e.g., '$100k - $150k'), otherwise null"
}

### CONSTRAINT:
If a piece of information is missing, set the value to null. Do not hallucinate or guess.

### RAW CONTENT:
%s
`

// ExtractJobDetails takes raw HTML from a posting and returns the job
// fields as a JSON string matching the wizard's create request.
func (s *LLMService) ExtractJobDetails(ctx context.Context, rawHTML string) (string, error) {
	if len(rawHTML) > 20000 {
		rawHTML = rawHTML[:20000]
	}
	prompt := fmt.Sprintf(jobExtractionPrompt, rawHTML)
	resp, err := llms.GenerateFromSinglePrompt(ctx, s.Client, prompt)
	if err != nil {
		return "", err
	}
	return resp, nil
}

// ClassifyStatusEmail asks the model which tracked status a recruiter
// email implies. Returns one of the application status strings or "NONE".
func (s *LLMService) ClassifyStatusEmail(ctx context.Context, subject, body string) (string, error) {
	if len(body) > 8000 {
		body = body[:8000]
	}
	prompt := fmt.Sprintf(`
You classify recruiting emails for a job application tracker.

Given the email below, answer with EXACTLY one of:
Applied, Interviewing, Offer, Rejected, NONE

Use NONE when the email is not about the status of a job application.

Subject: %s

Body:
%s
`, subject, body)
	resp, err := llms.GenerateFromSinglePrompt(ctx, s.Client, prompt)
	if err != nil {
		return "", err
	}
	return resp, nil
}
