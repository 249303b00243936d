package product

// Service provides catalog operations. It doubles as the catalog lookup
// collaborator for the cart and order services.
type Service struct {
	repo Repository
}

// ServiceInterface is the catalog surface other packages depend on.
type ServiceInterface interface {
	GetByID(id int) (Product, error)
	ListByIDs(ids []int) ([]Product, error)
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List() []Product {
	return s.repo.List()
}

func (s *Service) ListAvailable() []Product {
	return s.repo.ListAvailable()
}

func (s *Service) ListByIDs(ids []int) ([]Product, error) {
	return s.repo.ListByIDs(ids)
}

func (s *Service) GetByID(id int) (Product, error) {
	return s.repo.GetByID(id)
}

func (s *Service) Create(p Product) (Product, error) {
	return s.repo.Create(p)
}

func (s *Service) Update(id int, p Product) (Product, error) {
	return s.repo.Update(id, p)
}

func (s *Service) Delete(id int) error {
	return s.repo.Delete(id)
}
