package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"indibox/logger"
	"indibox/models"
	"indibox/repository"
)

type ReviewInput struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// ReviewStatus tells a player whether they already rated a game.
type ReviewStatus struct {
	HasReviewed bool           `json:"has_reviewed"`
	Review      *models.Review `json:"review,omitempty"`
}

type ReviewService struct {
	reviews repository.ReviewRepository
	games   repository.GameRepository
	log     zerolog.Logger
}

func NewReviewService(reviews repository.ReviewRepository, games repository.GameRepository) *ReviewService {
	return &ReviewService{reviews: reviews, games: games, log: logger.With("reviews")}
}

// Create adds the caller's review of a published game. A second review by
// the same player is a conflict.
func (s *ReviewService) Create(ctx context.Context, who Identity, gameIDOrSlug string, in ReviewInput) (*models.Review, error) {
	if !who.Authenticated() {
		return nil, ErrUnauthorized
	}
	in.Comment = strings.TrimSpace(in.Comment)
	if err := checkStruct(in); err != nil {
		return nil, err
	}
	game, err := s.publishedGame(ctx, gameIDOrSlug)
	if err != nil {
		return nil, err
	}

	_, err = s.reviews.FindByGameAndUser(ctx, game.ID, who.UserID)
	if err == nil {
		return nil, ErrConflict
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, storeErr(err)
	}

	review := &models.Review{
		ID:            uuid.NewString(),
		GameID:        game.ID,
		UserID:        who.UserID,
		UserName:      who.Name,
		UserAvatarURL: who.AvatarURL,
		Rating:        in.Rating,
		Comment:       in.Comment,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		if !errors.Is(err, repository.ErrDuplicate) {
			s.log.Error().Err(err).Str("game", game.ID).Msg("create review")
		}
		return nil, storeErr(err)
	}
	return review, nil
}

func (s *ReviewService) Update(ctx context.Context, who Identity, reviewID string, in ReviewInput) (*models.Review, error) {
	review, err := s.authored(ctx, who, reviewID)
	if err != nil {
		return nil, err
	}
	in.Comment = strings.TrimSpace(in.Comment)
	if err := checkStruct(in); err != nil {
		return nil, err
	}
	review.Rating = in.Rating
	review.Comment = in.Comment
	if err := s.reviews.Save(ctx, review); err != nil {
		s.log.Error().Err(err).Str("review", review.ID).Msg("update review")
		return nil, storeErr(err)
	}
	return review, nil
}

func (s *ReviewService) Delete(ctx context.Context, who Identity, reviewID string) error {
	review, err := s.authored(ctx, who, reviewID)
	if err != nil {
		return err
	}
	if err := s.reviews.Delete(ctx, review); err != nil {
		s.log.Error().Err(err).Str("review", review.ID).Msg("delete review")
		return storeErr(err)
	}
	return nil
}

// ListByGame returns the reviews of a published game, newest first.
func (s *ReviewService) ListByGame(ctx context.Context, gameIDOrSlug string) ([]models.Review, error) {
	game, err := s.publishedGame(ctx, gameIDOrSlug)
	if err != nil {
		return nil, err
	}
	reviews, err := s.reviews.ListByGame(ctx, game.ID)
	if err != nil {
		return nil, storeErr(err)
	}
	return reviews, nil
}

func (s *ReviewService) UserReview(ctx context.Context, who Identity, gameIDOrSlug string) (ReviewStatus, error) {
	if !who.Authenticated() {
		return ReviewStatus{}, ErrUnauthorized
	}
	game, err := findGame(ctx, s.games, gameIDOrSlug)
	if err != nil {
		return ReviewStatus{}, err
	}
	review, err := s.reviews.FindByGameAndUser(ctx, game.ID, who.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return ReviewStatus{}, nil
	}
	if err != nil {
		return ReviewStatus{}, storeErr(err)
	}
	return ReviewStatus{HasReviewed: true, Review: review}, nil
}

func (s *ReviewService) publishedGame(ctx context.Context, idOrSlug string) (*models.Game, error) {
	game, err := findGame(ctx, s.games, idOrSlug)
	if err != nil {
		return nil, err
	}
	if game.Status != models.StatusPublished {
		return nil, ErrNotFound
	}
	return game, nil
}

func (s *ReviewService) authored(ctx context.Context, who Identity, reviewID string) (*models.Review, error) {
	if !who.Authenticated() {
		return nil, ErrUnauthorized
	}
	review, err := s.reviews.FindByID(ctx, reviewID)
	if err != nil {
		return nil, storeErr(err)
	}
	if review.UserID != who.UserID {
		return nil, ErrForbidden
	}
	return review, nil
}
