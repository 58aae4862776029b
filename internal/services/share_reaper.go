package services

import (
	"log"
	"sync"
	"time"

	"github.com/driveon/backend/internal/models"
	"gorm.io/gorm"
)

// ShareReaperService periodically deactivates expired share links so they
// stop showing up as active rows. Access paths still check expiry lazily;
// the sweep just keeps the table from accumulating dead-but-active links.
type ShareReaperService struct {
	db       *gorm.DB
	interval time.Duration
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewShareReaperService creates a new share link reaper
func NewShareReaperService(db *gorm.DB, interval time.Duration) *ShareReaperService {
	return &ShareReaperService{
		db:       db,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the background sweep
func (s *ShareReaperService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log.Printf("ShareReaperService started, sweeping every %v", s.interval)

		// Run immediately on start
		s.sweep()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stopChan:
				log.Println("ShareReaperService stopped")
				return
			}
		}
	}()
}

// Stop signals the background job to stop and waits for it
func (s *ShareReaperService) Stop() {
	close(s.stopChan)
	s.wg.Wait()
}

func (s *ShareReaperService) sweep() {
	res := s.db.Model(&models.ShareLink{}).
		Where("is_active = true AND expires_at IS NOT NULL AND expires_at < ?", time.Now().UTC()).
		Update("is_active", false)
	if res.Error != nil {
		log.Printf("ShareReaperService: sweep failed: %v", res.Error)
		return
	}
	if res.RowsAffected > 0 {
		log.Printf("ShareReaperService: deactivated %d expired links", res.RowsAffected)
	}
}
