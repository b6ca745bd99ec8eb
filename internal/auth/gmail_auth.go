package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/careertrack/careertrack/internal/logger"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
)

// GetGmailClient reads the OAuth app credentials, runs the token flow if
// needed, and returns an authenticated HTTP client. Returns nil when no
// credential file exists so the caller can run without the watcher.
func GetGmailClient() *http.Client {
	log := logger.Get()

	b, err := os.ReadFile("credential.json")
	if err != nil {
		log.Warn().Err(err).Msg("No Gmail client secret file; email watcher will be disabled")
		return nil
	}

	// Readonly scope; the watcher never mutates the mailbox.
	config, err := google.ConfigFromJSON(b, gmail.GmailReadonlyScope)
	if err != nil {
		log.Fatal().Err(err).Msg("Unable to parse client secret file")
	}

	return getClient(config)
}

// getClient retrieves a token from a local file or prompts for login.
func getClient(config *oauth2.Config) *http.Client {
	// token.json stores the user's session between runs.
	tokFile := "token.json"
	tok, err := tokenFromFile(tokFile)
	if err != nil {
		tok = getTokenFromWeb(config)
		saveToken(tokFile, tok)
	}
	return config.Client(context.Background(), tok)
}

// getTokenFromWeb requests a token interactively.
func getTokenFromWeb(config *oauth2.Config) *oauth2.Token {
	log := logger.Get()
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("\nOpen this link to authorize Gmail access:\n%v\n\n", authURL)
	fmt.Printf("Paste the code here: ")

	var authCode string
	if _, err := fmt.Scan(&authCode); err != nil {
		log.Fatal().Err(err).Msg("Unable to read authorization code")
	}

	tok, err := config.Exchange(context.Background(), authCode)
	if err != nil {
		log.Fatal().Err(err).Msg("Unable to retrieve token from web")
	}
	return tok
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

func saveToken(path string, token *oauth2.Token) {
	log := logger.Get()
	log.Info().Str("path", path).Msg("Saving Gmail token")
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		log.Fatal().Err(err).Msg("Unable to cache oauth token")
	}
	defer f.Close()
	json.NewEncoder(f).Encode(token)
}
