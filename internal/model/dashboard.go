package model

// HospitalStats is the summary card set on the hospital dashboard.
type HospitalStats struct {
	TotalPatients      int              `json:"total_patients"`
	Admissions         int              `json:"admissions_today"`
	Discharges         int              `json:"discharges_today"`
	BedOccupancy       float64          `json:"bed_occupancy"`
	AvailableBeds      int              `json:"available_beds"`
	StaffOnDuty        int              `json:"staff_on_duty"`
	PendingLabResults  int              `json:"pending_lab_results"`
	Departments        []DepartmentLoad `json:"departments"`
	RecentAppointments []Appointment    `json:"recent_appointments"`
}

// DepartmentLoad is the occupancy of one department.
type DepartmentLoad struct {
	Name     string `json:"name"`
	Patients int    `json:"patients"`
	Capacity int    `json:"capacity"`
}

// Appointment is a row in the recent appointments table.
type Appointment struct {
	ID      string `json:"id"`
	Patient string `json:"patient"`
	Doctor  string `json:"doctor"`
	Time    string `json:"time"`
	Status  string `json:"status"`
}

// LabTest is an entry in the lab test catalogue.
type LabTest struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Sample      string  `json:"sample"`
	Price       float64 `json:"price"`
	TurnaroundH int     `json:"turnaround_hours"`
}

// HospitalPermissions is the permission set of the current hospital user.
type HospitalPermissions struct {
	Role        Role     `json:"role"`
	Permissions []string `json:"permissions"`
	Source      string   `json:"source"`
}
