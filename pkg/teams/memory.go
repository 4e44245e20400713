package teams

import (
	"context"
	"sync"
	"time"

	"github.com/vaultgate/vaultgate/pkg/access"
	"github.com/vaultgate/vaultgate/pkg/usage"
)

// MemoryStore is an in-memory Store used in tests. It also implements
// usage.Counter so admission logic can be exercised without a database.
type MemoryStore struct {
	mu sync.Mutex

	nextTeamID    int64
	nextUserID    int64
	nextProfileID int64

	teams         map[int64]*Team
	users         map[int64]*User
	usersByEmail  map[string]*User
	profiles      map[int64]*Profile // keyed by user id
	invites       map[string]*Invite
	verifications map[string]*EmailVerification
	projects      map[string]*Project
	tokens        map[string]int64 // hash -> user id
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextTeamID:    1,
		nextUserID:    1,
		nextProfileID: 1,
		teams:         make(map[int64]*Team),
		users:         make(map[int64]*User),
		usersByEmail:  make(map[string]*User),
		profiles:      make(map[int64]*Profile),
		invites:       make(map[string]*Invite),
		verifications: make(map[string]*EmailVerification),
		projects:      make(map[string]*Project),
		tokens:        make(map[string]int64),
	}
}

func (s *MemoryStore) CreateTeam(ctx context.Context, name string) (*Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	team := &Team{ID: s.nextTeamID, Name: name, CreatedAt: time.Now()}
	s.nextTeamID++
	s.teams[team.ID] = team
	copied := *team
	return &copied, nil
}

func (s *MemoryStore) GetTeam(ctx context.Context, id int64) (*Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	team, ok := s.teams[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *team
	return &copied, nil
}

func (s *MemoryStore) CreateUser(ctx context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.usersByEmail[email]; exists {
		return nil, ErrEmailTaken
	}
	user := &User{ID: s.nextUserID, Email: email, CreatedAt: time.Now()}
	s.nextUserID++
	s.users[user.ID] = user
	s.usersByEmail[email] = user
	copied := *user
	return &copied, nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id int64) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.usersByEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *MemoryStore) CreateProfile(ctx context.Context, profile *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile.ID = s.nextProfileID
	s.nextProfileID++
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now()
	}
	copied := *profile
	s.profiles[profile.UserID] = &copied
	return nil
}

func (s *MemoryStore) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *profile
	return &copied, nil
}

func (s *MemoryStore) ListTeamProfiles(ctx context.Context, teamID int64) ([]*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var profiles []*Profile
	for _, profile := range s.profiles {
		if profile.TeamID == teamID {
			copied := *profile
			profiles = append(profiles, &copied)
		}
	}
	return profiles, nil
}

func (s *MemoryStore) MarkEmailVerified(ctx context.Context, userID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[userID]
	if !ok {
		return ErrNotFound
	}
	if profile.EmailVerifiedAt == nil {
		verifiedAt := at
		profile.EmailVerifiedAt = &verifiedAt
	}
	return nil
}

func (s *MemoryStore) CreateInvite(ctx context.Context, invite *Invite) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *invite
	s.invites[invite.UID] = &copied
	return nil
}

func (s *MemoryStore) GetInvite(ctx context.Context, uid string) (*Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	invite, ok := s.invites[uid]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *invite
	return &copied, nil
}

func (s *MemoryStore) ConsumeInvite(ctx context.Context, uid string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	invite, ok := s.invites[uid]
	if !ok {
		return ErrNotFound
	}
	if invite.AcceptedAt != nil {
		return ErrInviteConsumed
	}
	acceptedAt := at
	invite.AcceptedAt = &acceptedAt
	return nil
}

func (s *MemoryStore) ListPendingInvites(ctx context.Context, teamID int64) ([]*Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var invites []*Invite
	for _, invite := range s.invites {
		if invite.TeamID == teamID && invite.AcceptedAt == nil {
			copied := *invite
			invites = append(invites, &copied)
		}
	}
	return invites, nil
}

func (s *MemoryStore) CreateVerification(ctx context.Context, verification *EmailVerification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if verification.CreatedAt.IsZero() {
		verification.CreatedAt = time.Now()
	}
	copied := *verification
	s.verifications[verification.UID] = &copied
	return nil
}

func (s *MemoryStore) GetVerification(ctx context.Context, uid string) (*EmailVerification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	verification, ok := s.verifications[uid]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *verification
	return &copied, nil
}

func (s *MemoryStore) DeleteVerification(ctx context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.verifications, uid)
	return nil
}

func (s *MemoryStore) DeleteExpiredVerifications(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var swept int64
	for uid, verification := range s.verifications {
		if now.After(verification.ExpiresAt) {
			delete(s.verifications, uid)
			swept++
		}
	}
	return swept, nil
}

func (s *MemoryStore) CreateProject(ctx context.Context, project *Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = time.Now()
	}
	copied := *project
	s.projects[project.UID] = &copied
	return nil
}

func (s *MemoryStore) GetProject(ctx context.Context, uid string) (*Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	project, ok := s.projects[uid]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *project
	return &copied, nil
}

func (s *MemoryStore) ListProjects(ctx context.Context, teamID int64) ([]*Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var projects []*Project
	for _, project := range s.projects {
		if project.TeamID == teamID {
			copied := *project
			projects = append(projects, &copied)
		}
	}
	return projects, nil
}

func (s *MemoryStore) ListAllProjects(ctx context.Context) ([]*Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	projects := make([]*Project, 0, len(s.projects))
	for _, project := range s.projects {
		copied := *project
		projects = append(projects, &copied)
	}
	return projects, nil
}

func (s *MemoryStore) SetProjectSize(ctx context.Context, uid string, sizeBytes int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	project, ok := s.projects[uid]
	if !ok {
		return ErrNotFound
	}
	project.SizeBytes = sizeBytes
	return nil
}

func (s *MemoryStore) CreateToken(ctx context.Context, userID int64, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tokenHash] = userID
	return nil
}

func (s *MemoryStore) LookupToken(ctx context.Context, tokenHash string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.tokens[tokenHash]
	if !ok {
		return 0, ErrNotFound
	}
	return userID, nil
}

func (s *MemoryStore) CountTeams(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.teams)), nil
}

func (s *MemoryStore) CountProjects(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.projects)), nil
}

// Snapshot implements usage.Counter over the in-memory tables
func (s *MemoryStore) Snapshot(ctx context.Context, teamID int64) (usage.Counts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var counts usage.Counts
	for _, profile := range s.profiles {
		if profile.TeamID != teamID {
			continue
		}
		if profile.Role == access.RoleCollaborator {
			counts.Collaborators++
		} else {
			counts.Users++
		}
	}
	for _, invite := range s.invites {
		if invite.TeamID != teamID || invite.AcceptedAt != nil {
			continue
		}
		if invite.Role == access.RoleCollaborator {
			counts.PendingCollaboratorInvites++
		} else {
			counts.PendingUserInvites++
		}
	}
	for _, project := range s.projects {
		if project.TeamID == teamID {
			counts.Projects++
			counts.StorageBytes += project.SizeBytes
		}
	}
	return counts, nil
}
