package dashboard

import "github.com/jwalitptl/care-portal/internal/model"

func hospitalStats() *model.HospitalStats {
	departments := []model.DepartmentLoad{
		{Name: "Cardiology", Patients: 42, Capacity: 50},
		{Name: "Emergency", Patients: 31, Capacity: 40},
		{Name: "Neurology", Patients: 18, Capacity: 30},
		{Name: "Orthopedics", Patients: 25, Capacity: 35},
		{Name: "Pediatrics", Patients: 22, Capacity: 30},
	}

	var occupied, capacity int
	for _, d := range departments {
		occupied += d.Patients
		capacity += d.Capacity
	}

	return &model.HospitalStats{
		TotalPatients:     1284,
		Admissions:        37,
		Discharges:        29,
		BedOccupancy:      float64(occupied*100) / float64(capacity),
		AvailableBeds:     capacity - occupied,
		StaffOnDuty:       146,
		PendingLabResults: 23,
		Departments:       departments,
		RecentAppointments: []model.Appointment{
			{ID: "APT-1042", Patient: "Aisha Khan", Doctor: "Dr. Mehta", Time: "09:30", Status: "completed"},
			{ID: "APT-1043", Patient: "Rahul Verma", Doctor: "Dr. Iyer", Time: "10:15", Status: "in_progress"},
			{ID: "APT-1044", Patient: "Sara Thomas", Doctor: "Dr. Mehta", Time: "11:00", Status: "scheduled"},
			{ID: "APT-1045", Patient: "Imran Sheikh", Doctor: "Dr. Rao", Time: "11:45", Status: "scheduled"},
			{ID: "APT-1046", Patient: "Neha Joshi", Doctor: "Dr. Iyer", Time: "12:30", Status: "cancelled"},
		},
	}
}

var labTests = []model.LabTest{
	{Code: "CBC", Name: "Complete Blood Count", Category: "Hematology", Sample: "Blood", Price: 350, TurnaroundH: 6},
	{Code: "ESR", Name: "Erythrocyte Sedimentation Rate", Category: "Hematology", Sample: "Blood", Price: 150, TurnaroundH: 4},
	{Code: "PT-INR", Name: "Prothrombin Time", Category: "Hematology", Sample: "Blood", Price: 400, TurnaroundH: 6},
	{Code: "LFT", Name: "Liver Function Test", Category: "Biochemistry", Sample: "Blood", Price: 750, TurnaroundH: 12},
	{Code: "KFT", Name: "Kidney Function Test", Category: "Biochemistry", Sample: "Blood", Price: 700, TurnaroundH: 12},
	{Code: "LIPID", Name: "Lipid Profile", Category: "Biochemistry", Sample: "Blood", Price: 600, TurnaroundH: 12},
	{Code: "HBA1C", Name: "Glycated Hemoglobin", Category: "Biochemistry", Sample: "Blood", Price: 550, TurnaroundH: 24},
	{Code: "FBS", Name: "Fasting Blood Sugar", Category: "Biochemistry", Sample: "Blood", Price: 100, TurnaroundH: 4},
	{Code: "TSH", Name: "Thyroid Stimulating Hormone", Category: "Endocrinology", Sample: "Blood", Price: 450, TurnaroundH: 24},
	{Code: "T3T4", Name: "Thyroid Profile", Category: "Endocrinology", Sample: "Blood", Price: 650, TurnaroundH: 24},
	{Code: "VITD", Name: "Vitamin D (25-OH)", Category: "Endocrinology", Sample: "Blood", Price: 1200, TurnaroundH: 48},
	{Code: "URINE-RE", Name: "Urine Routine Examination", Category: "Clinical Pathology", Sample: "Urine", Price: 200, TurnaroundH: 4},
	{Code: "STOOL-RE", Name: "Stool Routine Examination", Category: "Clinical Pathology", Sample: "Stool", Price: 250, TurnaroundH: 6},
	{Code: "CRP", Name: "C-Reactive Protein", Category: "Immunology", Sample: "Blood", Price: 500, TurnaroundH: 8},
	{Code: "DENGUE-NS1", Name: "Dengue NS1 Antigen", Category: "Immunology", Sample: "Blood", Price: 900, TurnaroundH: 8},
	{Code: "WIDAL", Name: "Widal Test", Category: "Immunology", Sample: "Blood", Price: 300, TurnaroundH: 8},
	{Code: "BLOOD-CS", Name: "Blood Culture and Sensitivity", Category: "Microbiology", Sample: "Blood", Price: 1100, TurnaroundH: 72},
	{Code: "URINE-CS", Name: "Urine Culture and Sensitivity", Category: "Microbiology", Sample: "Urine", Price: 800, TurnaroundH: 72},
}
