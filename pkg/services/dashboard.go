package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dashly-io/dashly-engine/pkg/apperrors"
	"github.com/dashly-io/dashly-engine/pkg/models"
	"github.com/dashly-io/dashly-engine/pkg/repositories"
)

// DashboardService manages dashboards and cards with ownership checks.
type DashboardService struct {
	repo     repositories.DashboardRepository
	settings *SettingsService
}

// NewDashboardService creates a dashboard service.
func NewDashboardService(repo repositories.DashboardRepository, settings *SettingsService) *DashboardService {
	return &DashboardService{repo: repo, settings: settings}
}

// Create makes a new dashboard owned by the user.
func (s *DashboardService) Create(ctx context.Context, owner *models.User, name, description string) (*models.Dashboard, error) {
	if name == "" {
		return nil, fmt.Errorf("dashboard name is required")
	}
	d := &models.Dashboard{
		Name:        name,
		Description: description,
		OwnerID:     owner.ID,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Get returns a dashboard the user is allowed to see. Admins see every
// dashboard; others see their own and public ones.
func (s *DashboardService) Get(ctx context.Context, user *models.User, id uuid.UUID) (*models.Dashboard, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.OwnerID != user.ID && !user.IsAdmin() && !d.IsPublic {
		return nil, apperrors.ErrNotFound
	}
	return d, nil
}

// List returns the user's dashboards.
func (s *DashboardService) List(ctx context.Context, user *models.User) ([]*models.Dashboard, error) {
	return s.repo.ListByOwner(ctx, user.ID)
}

// Update changes a dashboard's metadata. Publishing requires the access
// policy to allow public dashboards.
func (s *DashboardService) Update(ctx context.Context, user *models.User, d *models.Dashboard) error {
	existing, err := s.ownedDashboard(ctx, user, d.ID)
	if err != nil {
		return err
	}

	if d.IsPublic && !existing.IsPublic {
		access, err := s.settings.Access(ctx)
		if err != nil {
			return err
		}
		if !access.AllowPublicDashboards {
			return fmt.Errorf("public dashboards are disabled")
		}
	}

	existing.Name = d.Name
	existing.Description = d.Description
	existing.IsPublic = d.IsPublic
	existing.LogoURL = d.LogoURL
	*d = *existing
	return s.repo.Update(ctx, existing)
}

// Delete removes a dashboard and its cards.
func (s *DashboardService) Delete(ctx context.Context, user *models.User, id uuid.UUID) error {
	if _, err := s.ownedDashboard(ctx, user, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// GetPublic returns a dashboard for unauthenticated viewing. It succeeds
// only when the dashboard is public and the policy allows publishing.
func (s *DashboardService) GetPublic(ctx context.Context, id uuid.UUID) (*models.Dashboard, []*models.DashboardCard, error) {
	access, err := s.settings.Access(ctx)
	if err != nil {
		return nil, nil, err
	}
	if !access.AllowPublicDashboards {
		return nil, nil, apperrors.ErrNotFound
	}

	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !d.IsPublic {
		return nil, nil, apperrors.ErrNotFound
	}

	cards, err := s.repo.ListCards(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return d, cards, nil
}

// GetPublicCard returns a card for unauthenticated viewing. The same gates
// as GetPublic apply, and the card must belong to the requested dashboard.
func (s *DashboardService) GetPublicCard(ctx context.Context, dashboardID, cardID uuid.UUID) (*models.DashboardCard, error) {
	access, err := s.settings.Access(ctx)
	if err != nil {
		return nil, err
	}
	if !access.AllowPublicDashboards {
		return nil, apperrors.ErrNotFound
	}

	d, err := s.repo.GetByID(ctx, dashboardID)
	if err != nil {
		return nil, err
	}
	if !d.IsPublic {
		return nil, apperrors.ErrNotFound
	}

	card, err := s.repo.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if card.DashboardID != dashboardID {
		return nil, apperrors.ErrNotFound
	}
	return card, nil
}

// AddCard places a card on a dashboard, snapping its layout to the grid.
func (s *DashboardService) AddCard(ctx context.Context, user *models.User, card *models.DashboardCard) error {
	if _, err := s.ownedDashboard(ctx, user, card.DashboardID); err != nil {
		return err
	}
	if !models.ValidVisualization(card.VisualizationType) {
		return fmt.Errorf("unknown visualization type: %s", card.VisualizationType)
	}
	card.SnapLayout()
	return s.repo.CreateCard(ctx, card)
}

// ListCards returns a dashboard's cards.
func (s *DashboardService) ListCards(ctx context.Context, user *models.User, dashboardID uuid.UUID) ([]*models.DashboardCard, error) {
	if _, err := s.Get(ctx, user, dashboardID); err != nil {
		return nil, err
	}
	return s.repo.ListCards(ctx, dashboardID)
}

// UpdateCard changes a card's content and placement, snapping the layout.
func (s *DashboardService) UpdateCard(ctx context.Context, user *models.User, card *models.DashboardCard) error {
	existing, err := s.repo.GetCard(ctx, card.ID)
	if err != nil {
		return err
	}
	if _, err := s.ownedDashboard(ctx, user, existing.DashboardID); err != nil {
		return err
	}
	if !models.ValidVisualization(card.VisualizationType) {
		return fmt.Errorf("unknown visualization type: %s", card.VisualizationType)
	}
	card.DashboardID = existing.DashboardID
	card.SnapLayout()
	return s.repo.UpdateCard(ctx, card)
}

// DeleteCard removes a card.
func (s *DashboardService) DeleteCard(ctx context.Context, user *models.User, cardID uuid.UUID) error {
	existing, err := s.repo.GetCard(ctx, cardID)
	if err != nil {
		return err
	}
	if _, err := s.ownedDashboard(ctx, user, existing.DashboardID); err != nil {
		return err
	}
	return s.repo.DeleteCard(ctx, cardID)
}

// UpdateLayout applies bulk position changes, snapping every entry.
func (s *DashboardService) UpdateLayout(ctx context.Context, user *models.User, dashboardID uuid.UUID, layouts []repositories.CardLayout) error {
	if _, err := s.ownedDashboard(ctx, user, dashboardID); err != nil {
		return err
	}
	for i := range layouts {
		layouts[i].X = models.SnapToGrid(layouts[i].X)
		layouts[i].Y = models.SnapToGrid(layouts[i].Y)
		layouts[i].Width = models.SnapToGrid(layouts[i].Width)
		layouts[i].Height = models.SnapToGrid(layouts[i].Height)
		if layouts[i].Width < models.GridUnit {
			layouts[i].Width = models.GridUnit
		}
		if layouts[i].Height < models.GridUnit {
			layouts[i].Height = models.GridUnit
		}
	}
	return s.repo.UpdateLayout(ctx, dashboardID, layouts)
}

// ownedDashboard loads a dashboard and checks write access. Owners and
// admins may modify; everyone else gets not found.
func (s *DashboardService) ownedDashboard(ctx context.Context, user *models.User, id uuid.UUID) (*models.Dashboard, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.OwnerID != user.ID && !user.IsAdmin() {
		return nil, apperrors.ErrNotFound
	}
	return d, nil
}
