package strava

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/lildude/fittrack/internal/client"
	"github.com/lildude/fittrack/internal/model"
)

// IntegrationType is the Integration.Type value for Strava rows.
const IntegrationType = "STRAVA"

// ErrNotConnected is returned when a user has no active Strava integration.
var ErrNotConnected = errors.New("strava integration not found or inactive")

// Integration loads the user's active Strava integration.
func Integration(db *gorm.DB, userID string) (*model.Integration, error) {
	var integration model.Integration
	err := db.Where("user_id = ? AND type = ?", userID, IntegrationType).First(&integration).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotConnected
	}
	if err != nil {
		return nil, fmt.Errorf("loading strava integration: %w", err)
	}
	if !integration.IsActive {
		return nil, ErrNotConnected
	}
	return &integration, nil
}

// Token returns a valid access token for the user, refreshing and persisting
// the token pair first when the stored one has expired. The refresh is
// synchronous: the caller does not proceed until the new pair is saved.
func Token(ctx context.Context, db *gorm.DB, userID string) (*oauth2.Token, error) {
	integration, err := Integration(db, userID)
	if err != nil {
		return nil, err
	}

	token := &oauth2.Token{
		AccessToken:  integration.AccessToken,
		RefreshToken: integration.RefreshToken,
		Expiry:       integration.ExpiresAt,
	}

	if token.Valid() {
		return token, nil
	}

	ts := OauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: integration.RefreshToken})
	newToken, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing strava token: %w", err)
	}

	err = db.Model(integration).Updates(map[string]interface{}{
		"access_token":  newToken.AccessToken,
		"refresh_token": newToken.RefreshToken,
		"expires_at":    newToken.Expiry,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("persisting refreshed strava token: %w", err)
	}

	return newToken, nil
}

// NewAPIClient returns a REST client authenticated as the given user.
func NewAPIClient(ctx context.Context, db *gorm.DB, userID string) (*client.Client, error) {
	token, err := Token(ctx, db, userID)
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(BaseURL)
	if err != nil {
		return nil, err
	}

	tc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	return client.NewClient(base, tc), nil
}

// Disconnect deactivates and removes the user's Strava integration.
func Disconnect(db *gorm.DB, userID string) error {
	return db.Where("user_id = ? AND type = ?", userID, IntegrationType).
		Delete(&model.Integration{}).Error
}

// UpsertIntegration stores a freshly exchanged token pair for the user,
// creating the integration row on first connect and replacing the token on
// reconnects.
func UpsertIntegration(db *gorm.DB, userID string, token *oauth2.Token, athlete *Athlete) error {
	// Look the row up without the IsActive filter so a disconnected
	// integration is revived rather than duplicated.
	integration := &model.Integration{}
	err := db.Where("user_id = ? AND type = ?", userID, IntegrationType).First(integration).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		integration = &model.Integration{UserID: userID, Type: IntegrationType}
	} else if err != nil {
		return fmt.Errorf("loading strava integration: %w", err)
	}

	integration.AccessToken = token.AccessToken
	integration.RefreshToken = token.RefreshToken
	integration.ExpiresAt = token.Expiry
	integration.IsActive = true
	if athlete != nil {
		if err := integration.Metadata.Set(map[string]interface{}{
			"athleteId": athlete.ID,
			"username":  athlete.Username,
			"firstname": athlete.Firstname,
			"lastname":  athlete.Lastname,
		}); err != nil {
			return fmt.Errorf("encoding athlete metadata: %w", err)
		}
	}

	return db.Save(integration).Error
}

// AthleteFromToken pulls the athlete summary Strava attaches to a token
// exchange response.
func AthleteFromToken(token *oauth2.Token) *Athlete {
	raw, ok := token.Extra("athlete").(map[string]interface{})
	if !ok {
		return nil
	}
	athlete := &Athlete{}
	if id, ok := raw["id"].(float64); ok {
		athlete.ID = int64(id)
	}
	if v, ok := raw["username"].(string); ok {
		athlete.Username = v
	}
	if v, ok := raw["firstname"].(string); ok {
		athlete.Firstname = v
	}
	if v, ok := raw["lastname"].(string); ok {
		athlete.Lastname = v
	}
	return athlete
}
